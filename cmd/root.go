package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/blewis-maker/Katapult-Automation/internal/config"
	"github.com/blewis-maker/Katapult-Automation/internal/resilience"
	"github.com/blewis-maker/Katapult-Automation/internal/store"
	"github.com/blewis-maker/Katapult-Automation/pkg/katapult"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "katapult",
	Short: "Utility pole job extraction for Katapult Pro",
	Long:  "Pulls pole, anchor, and connection data from Katapult Pro jobs and writes consolidated shapefiles and reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// initStore opens and migrates the SQLite run log.
func initStore(ctx context.Context) (store.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		path = "katapult.db"
	}
	st, err := store.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initClient builds the Katapult client from the katapult config section.
func initClient() katapult.Client {
	k := cfg.Katapult
	return katapult.NewClient(k.APIKey,
		katapult.WithBaseURL(k.BaseURL),
		katapult.WithTimeout(time.Duration(k.TimeoutSecs)*time.Second),
		katapult.WithRetryConfig(resilience.FromRetryConfig(k.MaxAttempts, k.RetryDelayMs, k.RateLimitDelaySecs)),
		katapult.WithLimiter(rate.NewLimiter(rate.Limit(k.RequestsPerSecond), 1)),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
