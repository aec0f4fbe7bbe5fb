package mq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type ackRecorder struct {
	acked   int
	nacked  int
	requeue []bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked++; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

var errTransient = errors.New("database unavailable")

func newTestConsumer(err error) *Consumer {
	return &Consumer{
		logger:    zap.NewNop(),
		handler:   func(context.Context, []byte) error { return err },
		retryable: func(e error) bool { return errors.Is(e, errTransient) },
	}
}

func TestProcessMessage_AckOnSuccess(t *testing.T) {
	rec := &ackRecorder{}
	newTestConsumer(nil).processMessage(context.Background(), amqp.Delivery{Acknowledger: rec})

	assert.Equal(t, 1, rec.acked)
	assert.Equal(t, 0, rec.nacked)
}

func TestProcessMessage_RejectedGoesToDLQ(t *testing.T) {
	rec := &ackRecorder{}
	newTestConsumer(errors.New("invalid reading")).processMessage(context.Background(), amqp.Delivery{Acknowledger: rec})

	assert.Equal(t, 0, rec.acked)
	assert.Equal(t, []bool{false}, rec.requeue)
}

func TestProcessMessage_TransientRequeuedOnce(t *testing.T) {
	c := newTestConsumer(errTransient)

	first := &ackRecorder{}
	c.processMessage(context.Background(), amqp.Delivery{Acknowledger: first})
	assert.Equal(t, []bool{true}, first.requeue)

	second := &ackRecorder{}
	c.processMessage(context.Background(), amqp.Delivery{Acknowledger: second, Redelivered: true})
	assert.Equal(t, []bool{false}, second.requeue)
}
