package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"parcelroute/internal/api"
)

var serveFlags = map[string]string{
	"addr":                 "server.addr",
	"database-url":         "server.database_url",
	"redis-url":            "server.redis_url",
	"migrate":              "server.migrate",
	"migrations-dir":       "server.migrations_dir",
	"rate-rps":             "server.rate_rps",
	"rate-burst":           "server.rate_burst",
	"webhook-max-attempts": "server.webhook_max_attempts",
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the webhook worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v, serveFlags)
			if err != nil {
				return err
			}
			srv, err := api.NewServer(cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}

	f := cmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.String("database-url", "", "Postgres URL; empty keeps runs in memory")
	f.String("redis-url", "", "Redis URL for cross-replica run events")
	f.Bool("migrate", true, "apply SQL migrations on start")
	f.String("migrations-dir", "db/migrations", "directory of *.sql migrations")
	f.Float64("rate-rps", 0, "requests per second across the API, 0 disables")
	f.Int("rate-burst", 0, "rate limiter burst")
	f.Int("webhook-max-attempts", 10, "delivery attempts before a webhook is marked failed")
	return cmd
}
