package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/akarl/annoq/internal/config"
	"github.com/akarl/annoq/internal/httpapi"
	"github.com/akarl/annoq/internal/otel"
)

func newServeCmd() *cobra.Command {
	var (
		port       int
		dev        bool
		apiKey     string
		dbDriver   string
		dbURL      string
		enableOtel bool
		noSeed     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the annoq API server (queues, items, annotations)",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())

			opts := httpapi.ServerOptions{
				Home:     home,
				Addr:     fmt.Sprintf("127.0.0.1:%d", port),
				Dev:      dev,
				APIKey:   apiKey,
				DBDriver: dbDriver,
				DBURL:    dbURL,
				SkipSeed: noSeed,
			}
			if enableOtel {
				handler, err := otel.InitMeterProvider(cmd.Context(), "annoq")
				if err != nil {
					slog.Warn("otel init failed, falling back to plain /metrics", "err", err)
				} else {
					opts.MetricsHandler = handler
					opts.UseOtelHTTP = true
					if err := otel.InitMetrics(cmd.Context()); err != nil {
						slog.Warn("otel instruments init failed", "err", err)
					}
				}
			}

			app, err := httpapi.NewApp(opts)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "annoq serving on http://%s\n", opts.Addr)

			errCh := make(chan error, 1)
			go func() {
				errCh <- app.Server.ListenAndServe()
			}()

			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return app.Server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 3719, "Port for the API server")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable dev mode (CORS)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Require X-API-Key on requests")
	cmd.Flags().StringVar(&dbDriver, "db-driver", "sqlite", "Store driver: sqlite or postgres")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "DB connection string (for postgres; or set DATABASE_URL)")
	cmd.Flags().BoolVar(&enableOtel, "otel", true, "Enable OpenTelemetry metrics (Prometheus exporter, HTTP instrumentation)")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "Do not seed demo queues into an empty database")

	return cmd
}
