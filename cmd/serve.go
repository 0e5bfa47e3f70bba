package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/archive"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/audit"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/report"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance web server.

Kiosks post photos to POST /register and POST /attendance. Listings, the
daily summary and the ambiguity audit are under /api/v1, and live events
are streamed over a websocket at /api/v1/events.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// setupPublishers returns the event publisher chain and a cleanup func.
func setupPublishers(cfg *config.Config, hub *events.Hub) (events.Publisher, func()) {
	publishers := events.Multi{hub}
	cleanup := func() {}

	if cfg.Events.RedisAddress != "" {
		redisPub, err := events.NewRedisPublisher(cfg.Events)
		if err != nil {
			logrus.WithError(err).Warn("redis unavailable, events are only streamed over websocket")
		} else {
			publishers = append(publishers, redisPub)
			cleanup = func() { redisPub.Close() }
			logrus.WithField("channel", cfg.Events.RedisChannel).Info("publishing events to redis")
		}
	}
	return publishers, cleanup
}

// setupArchiver returns the S3 archiver when a bucket is configured.
func setupArchiver(cfg *config.Config) (archive.Archiver, error) {
	if !cfg.Archive.Enabled() {
		return archive.Nop{}, nil
	}
	s3, err := archive.NewS3(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	logrus.WithField("bucket", cfg.Archive.Bucket).Info("archiving enrollment images")
	return s3, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	allowed := middleware.OriginAllowed(cfg.Web.AllowedOrigins)
	hub := events.NewHub(func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed(origin)
	})
	go hub.Run(ctx)

	publisher, closePublishers := setupPublishers(cfg, hub)
	defer closePublishers()

	archiver, err := setupArchiver(cfg)
	if err != nil {
		return err
	}

	service, err := newService(cfg, store,
		attendance.WithPublisher(publisher),
		attendance.WithArchiver(archiver),
	)
	if err != nil {
		return err
	}

	reporter := report.NewReporter(store, publisher)
	if cfg.Report.Schedule != "" {
		scheduler, err := report.Schedule(cfg.Report.Schedule, reporter)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
		logrus.WithField("schedule", cfg.Report.Schedule).Info("daily report scheduled")
	}

	server := web.NewServer(&cfg.Web, web.Deps{
		Store:      store,
		Attendance: service,
		Reporter:   reporter,
		Auditor:    audit.New(store, service.Tolerance()),
		Hub:        hub,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("error during shutdown")
		}
		cancel()
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
