package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"github.com/subtracklabs/subtrack/internal/clock"
	"github.com/subtracklabs/subtrack/internal/config"
	"github.com/subtracklabs/subtrack/internal/db"
	"github.com/subtracklabs/subtrack/internal/emailverify"
	"github.com/subtracklabs/subtrack/internal/mailer"
	"github.com/subtracklabs/subtrack/internal/metrics"
	"github.com/subtracklabs/subtrack/internal/observability"
	"github.com/subtracklabs/subtrack/internal/processor"
	"github.com/subtracklabs/subtrack/internal/record"
	"github.com/subtracklabs/subtrack/internal/redis"
	"github.com/subtracklabs/subtrack/internal/server"
	"github.com/subtracklabs/subtrack/internal/subscription"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "subtrack",
		Short: "Subscription lifecycle reconciliation service",
	}
	root.AddCommand(newMigrateCmd(), newServeCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		fx.Invoke(func(gdb *gorm.DB) error { return db.Migrate(gdb) }),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		redis.Module,
		clock.Module,
		metrics.Module,
		record.Module,
		processor.Module,
		subscription.Module,
		mailer.Module,
		emailverify.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
