package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/septivank/energy-insight-engine/internal/config"
	"github.com/septivank/energy-insight-engine/internal/engine"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// deps are the components one-shot commands work with
type deps struct {
	Engine  *engine.Engine
	Backend Backend
	Logger  *zap.Logger
}

// withApp starts the core graph, runs fn and prints its result as JSON
func withApp(ctx context.Context, fn func(ctx context.Context, d deps) (any, error)) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var d deps
	app := fx.New(
		coreModule(cfg),
		fx.Populate(&d.Engine, &d.Backend, &d.Logger),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, lifecycleTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), lifecycleTimeout)
		defer stopCancel()
		if err := app.Stop(stopCtx); err != nil {
			d.Logger.Error("error stopping app", zap.Error(err))
		}
	}()

	result, err := fn(ctx, d)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

var (
	flagUser   int64
	flagDevice int64
	flagValue  float64
)

func init() {
	for _, cmd := range []*cobra.Command{insightsCmd, creditCmd, thresholdCmd, removeDeviceCmd, notificationsCmd} {
		cmd.Flags().Int64VarP(&flagUser, "user", "u", 0, "User ID")
		cmd.MarkFlagRequired("user")
		rootCmd.AddCommand(cmd)
	}

	thresholdCmd.Flags().Float64Var(&flagValue, "value", 0, "New low-credit threshold (10-1000)")
	thresholdCmd.MarkFlagRequired("value")

	removeDeviceCmd.Flags().Int64VarP(&flagDevice, "device", "d", 0, "Device ID")
	removeDeviceCmd.MarkFlagRequired("device")
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate ranked saving insights for a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, d deps) (any, error) {
			return d.Engine.GenerateInsights(ctx, flagUser)
		})
	},
}

var creditCmd = &cobra.Command{
	Use:   "credit",
	Short: "Show remaining credit for the current billing cycle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, d deps) (any, error) {
			return d.Engine.GetRemainingCredit(ctx, flagUser)
		})
	},
}

var thresholdCmd = &cobra.Command{
	Use:   "threshold",
	Short: "Update a user's low-credit threshold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, d deps) (any, error) {
			return d.Engine.UpdateCreditThreshold(ctx, flagUser, flagValue)
		})
	},
}

var removeDeviceCmd = &cobra.Command{
	Use:   "remove-device",
	Short: "Delete a device and all of its readings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, d deps) (any, error) {
			if err := d.Engine.RemoveDevice(ctx, flagUser, flagDevice); err != nil {
				return nil, err
			}
			return map[string]string{"message": fmt.Sprintf("Device %d removed", flagDevice)}, nil
		})
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List notifications from the recent window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, d deps) (any, error) {
			return d.Engine.RecentNotifications(ctx, flagUser)
		})
	},
}
