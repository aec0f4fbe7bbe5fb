package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/septivank/energy-insight-engine/internal/db"
)

// fakeStore is an in-memory Store. InUserTx takes a single mutex, which is
// stricter than per-user locking but gives the same guarantees.
type fakeStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users         map[int64]*db.User
	devices       map[int64]*db.Device
	readings      []db.PowerReading
	tips          []db.Tip
	shown         []db.ShownTip
	notifications []db.Notification
	recoveries    map[int64]time.Time

	readingsErr   error
	deviceTypeErr error
	userErr       error
	tipsErr       error
	appendErr     error
	deleteErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[int64]*db.User),
		devices: make(map[int64]*db.Device),
		tips:       db.DefaultTips(),
		recoveries: make(map[int64]time.Time),
	}
}

func (s *fakeStore) addUser(id int64, balance, threshold float64) {
	s.users[id] = &db.User{ID: id, CreditBalance: balance, CreditThreshold: threshold}
}

func (s *fakeStore) addDevice(id, userID int64, name string, typ db.DeviceType) {
	s.devices[id] = &db.Device{ID: id, UserID: userID, Name: name, Type: typ}
}

func (s *fakeStore) addReading(deviceID int64, ts time.Time, usage float64) *db.PowerReading {
	d := s.devices[deviceID]
	s.readings = append(s.readings, db.PowerReading{
		ID:         int64(len(s.readings) + 1),
		DeviceID:   deviceID,
		UserID:     d.UserID,
		DeviceName: d.Name,
		DeviceType: d.Type,
		Timestamp:  ts,
		PowerUsage: usage,
	})
	return &s.readings[len(s.readings)-1]
}

func (s *fakeStore) ReadingsForUser(_ context.Context, userID int64, since time.Time) ([]db.PowerReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readingsErr != nil {
		return nil, s.readingsErr
	}
	var out []db.PowerReading
	for _, r := range s.readings {
		if r.UserID == userID && !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) ReadingsForDeviceType(_ context.Context, userID int64, deviceType db.DeviceType, since time.Time) ([]db.PowerReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deviceTypeErr != nil {
		return nil, s.deviceTypeErr
	}
	var out []db.PowerReading
	for _, r := range s.readings {
		if r.UserID == userID && r.DeviceType == deviceType && !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) GetUser(_ context.Context, userID int64) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userErr != nil {
		return nil, s.userErr
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) SetThreshold(_ context.Context, userID int64, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.CreditThreshold = value
	return nil
}

func (s *fakeStore) RecentNotifications(_ context.Context, userID int64, since time.Time) ([]db.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.Notification
	for _, n := range s.notifications {
		if n.UserID == userID && !n.CreatedAt.Before(since) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *fakeStore) GetDevice(_ context.Context, deviceID int64) (*db.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *fakeStore) DeleteDeviceAndReadings(_ context.Context, userID, deviceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	d, ok := s.devices[deviceID]
	if !ok || d.UserID != userID {
		return db.ErrNotFound
	}
	kept := s.readings[:0]
	for _, r := range s.readings {
		if r.DeviceID != deviceID {
			kept = append(kept, r)
		}
	}
	s.readings = kept
	delete(s.devices, deviceID)
	return nil
}

func (s *fakeStore) InUserTx(ctx context.Context, userID int64, fn func(tx UserTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	tx := &fakeTx{store: s, shown: s.shown, notifications: s.notifications, recoveries: make(map[int64]time.Time)}
	for id, at := range s.recoveries {
		tx.recoveries[id] = at
	}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.shown = tx.shown
	s.notifications = tx.notifications
	s.recoveries = tx.recoveries
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) Ping(context.Context) error { return nil }

func (s *fakeStore) shownCount(userID, tipID int64) int {
	n := 0
	for _, st := range s.shown {
		if st.UserID == userID && st.TipID == tipID {
			n++
		}
	}
	return n
}

// fakeTx buffers appends and publishes them on commit
type fakeTx struct {
	store         *fakeStore
	shown         []db.ShownTip
	notifications []db.Notification
	recoveries    map[int64]time.Time
}

func (t *fakeTx) TipsCatalog(context.Context) ([]db.Tip, error) {
	if t.store.tipsErr != nil {
		return nil, t.store.tipsErr
	}
	return append([]db.Tip(nil), t.store.tips...), nil
}

func (t *fakeTx) ShownTips(_ context.Context, userID int64, since time.Time) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	for _, st := range t.shown {
		if st.UserID == userID && st.ShownAt.After(since) {
			out[st.TipID] = struct{}{}
		}
	}
	return out, nil
}

func (t *fakeTx) AppendShownTip(_ context.Context, userID, tipID int64, when time.Time) error {
	if t.store.appendErr != nil {
		return t.store.appendErr
	}
	t.shown = append(append([]db.ShownTip(nil), t.shown...), db.ShownTip{UserID: userID, TipID: tipID, ShownAt: when})
	return nil
}

func (t *fakeTx) AppendNotification(_ context.Context, userID int64, kind, message string, when time.Time) (*db.Notification, error) {
	if t.store.appendErr != nil {
		return nil, t.store.appendErr
	}
	n := db.Notification{ID: int64(len(t.notifications) + 1), UserID: userID, Type: kind, Message: message, CreatedAt: when}
	t.notifications = append(append([]db.Notification(nil), t.notifications...), n)
	return &n, nil
}

func (t *fakeTx) LastNotification(_ context.Context, userID int64, kind string) (*db.Notification, error) {
	for i := len(t.notifications) - 1; i >= 0; i-- {
		n := t.notifications[i]
		if n.UserID == userID && n.Type == kind {
			return &n, nil
		}
	}
	return nil, db.ErrNotFound
}

func (t *fakeTx) CreditRecoveredAt(_ context.Context, userID int64) (time.Time, error) {
	at, ok := t.recoveries[userID]
	if !ok {
		return time.Time{}, db.ErrNotFound
	}
	return at, nil
}

func (t *fakeTx) SetCreditRecoveredAt(_ context.Context, userID int64, when time.Time) error {
	if t.store.appendErr != nil {
		return t.store.appendErr
	}
	t.recoveries[userID] = when
	return nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu            sync.Mutex
	notifications []NotificationEvent
	removed       []DeviceRemovedEvent
	err           error
}

func (p *recordingPublisher) PublishNotification(_ context.Context, e NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, e)
	return p.err
}

func (p *recordingPublisher) PublishDeviceRemoved(_ context.Context, e DeviceRemovedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, e)
	return p.err
}
