// Package admin serves the operator-facing HTTP surface: liveness, readiness
// against the database, Prometheus metrics, and a small status snapshot of
// the bot's in-memory state. It is not exposed to Discord users.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"guildkeeper/internal/config"
)

// Status is the snapshot reported by /statusz.
type Status struct {
	GatewayConnected bool `json:"gateway_connected"`
	GuardInFlight    int  `json:"guard_in_flight"`
	WizardSessions   int  `json:"wizard_sessions"`
}

// StatusFunc supplies the current Status; wired to the bot at startup.
type StatusFunc func() Status

// NewRouter builds the admin engine with its middleware chain. Middleware
// order matters: tracing first, then the correlation id so logs and panic
// responses carry it.
func NewRouter(db *gorm.DB, cfg config.Config, log zerolog.Logger, status StatusFunc) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(RequestID())
	r.Use(Logger(log))
	r.Use(Recovery(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/statusz", func(c *gin.Context) {
		c.JSON(http.StatusOK, status())
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Serve runs the admin server until ctx is cancelled, then shuts it down
// gracefully. A disabled admin surface blocks until cancellation so callers
// treat both modes the same.
func Serve(ctx context.Context, cfg config.Config, handler http.Handler, log zerolog.Logger) error {
	if !cfg.Admin.Enabled {
		<-ctx.Done()
		return nil
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Admin.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	log.Info().Str("addr", srv.Addr).Msg("admin server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
