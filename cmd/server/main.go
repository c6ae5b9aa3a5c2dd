package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitkids-crm/internal/config"
	"fitkids-crm/internal/db"
	"fitkids-crm/internal/handlers"
	"fitkids-crm/internal/models"
	"fitkids-crm/internal/service"
	"fitkids-crm/internal/store/postgres"

	"github.com/robfig/cron/v3"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	conn, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, conn); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	svc := service.New(postgres.New(conn), service.WithLogger(log.Default()))

	// Seed the super admin if credentials are configured
	if err := seedAdminUser(ctx, cfg, svc); err != nil {
		log.Printf("Warning: Failed to seed admin user: %v", err)
	}

	sweeper, err := startExpirySweep(cfg, svc)
	if err != nil {
		log.Fatalf("Failed to schedule enrollment expiry: %v", err)
	}

	cfg.Debugf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	mux := handlers.NewRouter(cfg, svc)
	cfg.Debugf("ROUTE REGISTRATION COMPLETE - All routes registered above")
	cfg.Debugf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	<-sweeper.Stop().Done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: server shutdown: %v", err)
	}
}

// startExpirySweep moves enrollments past their end date to EXPIRED on the
// EXPIRY_CRON schedule, and once at startup.
func startExpirySweep(cfg *config.Config, svc *service.Service) (*cron.Cron, error) {
	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := svc.ExpireEnrollments(ctx, models.SystemActor, time.Now())
		if err != nil {
			log.Printf("ERROR: enrollment expiry sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("Expired %d enrollments", n)
		}
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.ExpiryCron, sweep); err != nil {
		return nil, err
	}
	c.Start()
	go sweep()
	cfg.Debugf("Enrollment expiry scheduled: %s", cfg.ExpiryCron)
	return c, nil
}

func seedAdminUser(ctx context.Context, cfg *config.Config, svc *service.Service) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := svc.CreateUser(ctx, models.SystemActor, service.UserInput{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		FullName: "Administrator",
		Role:     models.RoleSuperAdmin,
	})
	if models.IsKind(err, models.KindConflict) {
		// User already exists
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("Created default admin user: %s", cfg.AdminEmail)
	return nil
}
