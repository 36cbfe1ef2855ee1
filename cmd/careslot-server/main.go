package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/careslot/careslot/internal/config"
	"github.com/careslot/careslot/internal/domain/directory"
	"github.com/careslot/careslot/internal/domain/identity"
	"github.com/careslot/careslot/internal/domain/notification"
	"github.com/careslot/careslot/internal/domain/scheduling"
	"github.com/careslot/careslot/internal/platform/auth"
	"github.com/careslot/careslot/internal/platform/cache"
	"github.com/careslot/careslot/internal/platform/db"
	"github.com/careslot/careslot/internal/platform/middleware"
	"github.com/careslot/careslot/internal/platform/payments"
)

// DirectoryAdapter adapts the directory service to the scheduling.Directory
// interface, avoiding circular imports between the two domains.
type DirectoryAdapter struct {
	svc *directory.Service
}

func (a *DirectoryAdapter) Doctor(ctx context.Context, id uuid.UUID) (*scheduling.DoctorInfo, error) {
	doc, err := a.svc.GetDoctor(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrDoctorNotFound) {
			return nil, scheduling.ErrDoctorNotFound
		}
		return nil, err
	}
	return &scheduling.DoctorInfo{
		ID:         doc.ID,
		HospitalID: doc.HospitalID,
		Name:       doc.Name,
		Mode:       scheduling.ConsultationMode(doc.ConsultationMode),
		Active:     doc.IsActive,
	}, nil
}

func (a *DirectoryAdapter) Hospital(ctx context.Context, id uuid.UUID) (*scheduling.HospitalInfo, error) {
	h, err := a.svc.GetHospital(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrHospitalNotFound) {
			return nil, scheduling.ErrHospitalNotFound
		}
		return nil, err
	}
	return &scheduling.HospitalInfo{
		ID:     h.ID,
		Name:   h.Name,
		Mode:   scheduling.ConsultationMode(h.ConsultationMode),
		Active: h.IsActive,
	}, nil
}

// UserAdapter adapts the identity service to scheduling.UserLookup.
type UserAdapter struct {
	svc *identity.Service
}

func (a *UserAdapter) User(ctx context.Context, id uuid.UUID) (*scheduling.UserInfo, error) {
	u, err := a.svc.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, scheduling.ErrUserNotFound
		}
		return nil, err
	}
	return &scheduling.UserInfo{ID: u.ID, Name: u.Name}, nil
}

// ProfileAdapter adapts the identity service to scheduling.ProfileStore.
type ProfileAdapter struct {
	svc *identity.Service
}

func (a *ProfileAdapter) EnsureSelf(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	p, err := a.svc.EnsureSelfProfile(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (a *ProfileAdapter) Owns(ctx context.Context, userID, profileID uuid.UUID) (bool, error) {
	return a.svc.OwnsProfile(ctx, userID, profileID)
}

// NotifierAdapter adapts the notification service to scheduling.NotificationSink.
type NotifierAdapter struct {
	svc *notification.Service
}

func (a *NotifierAdapter) Notify(ctx context.Context, hospitalID, bookingID uuid.UUID, title, body string) error {
	return a.svc.Record(ctx, hospitalID, bookingID, title, body)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "careslot-server",
		Short: "Appointment booking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the booking API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run maintenance sweeps once and exit",
	}

	runSweep := func(expire bool) error {
		logger := newLogger()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx := context.Background()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()

		slotRepo := scheduling.NewSlotRepoPG(pool)
		bookingRepo := scheduling.NewBookingRepoPG(pool)
		sweeper := scheduling.NewSweeper(slotRepo, bookingRepo, db.NewPoolTxRunner(pool), logger, 0, 0)

		var n int
		if expire {
			n, err = sweeper.ExpireHoldBookings(ctx)
		} else {
			n, err = sweeper.ReleaseAbandonedSlots(ctx)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Processed %d row(s).\n", n)
		return nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "expire",
		Short: "Cancel hold bookings past their expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "release",
		Short: "Reactivate slots with no live booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(false)
		},
	})

	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health checks are registered before auth so probes need no token.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")

	if cfg.IsDev() && cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET not set; using dev auth with a fixed identity")
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.JWTSecret),
		}))
	}

	// Shared platform pieces
	txRunner := db.NewPoolTxRunner(pool)
	slotCache := cache.New(cfg.SlotCacheTTL())
	defer slotCache.Stop()
	verifier := payments.NewVerifier(cfg.PaymentSecret)

	// Directory domain
	hospitalRepo := directory.NewHospitalRepoPG(pool)
	doctorRepo := directory.NewDoctorRepoPG(pool)
	directorySvc := directory.NewService(hospitalRepo, doctorRepo)
	directoryHandler := directory.NewHandler(directorySvc)
	directoryHandler.RegisterRoutes(apiV1)

	// Identity domain
	userRepo := identity.NewUserRepoPG(pool)
	profileRepo := identity.NewProfileRepoPG(pool)
	identitySvc := identity.NewService(userRepo, profileRepo)
	identityHandler := identity.NewHandler(identitySvc)
	identityHandler.RegisterRoutes(apiV1)

	// Notification domain
	notificationRepo := notification.NewNotificationRepoPG(pool)
	notificationSvc := notification.NewService(notificationRepo)
	notificationHandler := notification.NewHandler(notificationSvc)
	notificationHandler.RegisterRoutes(apiV1)

	// Scheduling domain
	slotRepo := scheduling.NewSlotRepoPG(pool)
	bookingRepo := scheduling.NewBookingRepoPG(pool)
	schedSvc := scheduling.NewService(scheduling.Deps{
		Slots:            slotRepo,
		Bookings:         bookingRepo,
		Tx:               txRunner,
		Directory:        &DirectoryAdapter{svc: directorySvc},
		Users:            &UserAdapter{svc: identitySvc},
		Profiles:         &ProfileAdapter{svc: identitySvc},
		Notifier:         &NotifierAdapter{svc: notificationSvc},
		Verifier:         verifier,
		Cache:            slotCache,
		Logger:           logger,
		HoldTTL:          cfg.HoldTTL(),
		PaymentDevBypass: cfg.PaymentDevBypass,
	})
	schedHandler := scheduling.NewHandler(schedSvc)
	schedHandler.RegisterRoutes(apiV1)

	// Background sweeps for expired holds and abandoned slots
	sweeper := scheduling.NewSweeper(slotRepo, bookingRepo, txRunner, logger,
		cfg.ExpireSweepInterval(), cfg.ReleaseSweepInterval())
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go sweeper.Run(sweepCtx)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	sweepCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
