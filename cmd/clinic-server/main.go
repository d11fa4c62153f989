package main

import (
	"bufio"
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/clinical"
	"github.com/clinic/clinic/internal/domain/history"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/domain/pharmacy"
	"github.com/clinic/clinic/internal/domain/reporting"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/domain/staff"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/migrations"
)

const requestTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "clinic-server",
		Short:        "Clinic management API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(clinicCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// withPool loads config and opens a pool for one-shot commands.
func withPool(fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
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
	return fn(ctx, pool)
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
			schema, _ := cmd.Flags().GetString("schema")
			return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)
				count, err := db.NewMigrator(pool, migrations.FS).Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("schema", db.SchemaName("default"), "Target schema for migrations")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Migration status for schema: %s\n", schema)
				fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.Modified {
							status = "modified"
						}
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("schema", db.SchemaName("default"), "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func clinicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinic",
		Short: "Manage clinics",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <id>",
		Short: "Create a clinic schema and migrate it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !db.ValidClinicID(id) {
				return fmt.Errorf("invalid clinic identifier %q: use letters, digits and underscores", id)
			}
			return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
				if err := db.CreateClinicSchema(ctx, pool, id, db.NewMigrator(pool, migrations.FS)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Clinic %s created in schema %s.\n", id, db.SchemaName(id))
				return nil
			})
		},
	})
	return cmd
}

// hashPasswordCmd prints a bcrypt hash for ADMIN_PASSWORD_HASH. The
// password comes from the argument or, if absent, the first line of stdin.
func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for a password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// sessionSecret returns the configured signing key. Development servers
// without one get a random key, so their tokens die with the process.
func sessionSecret(cfg *config.Config) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret), nil
	}
	if !cfg.IsDev() {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	buf := make([]byte, 32)
	if _, err := crypto_rand.Read(buf); err != nil {
		return nil, err
	}
	return []byte(hex.EncodeToString(buf)), nil
}

func openSessionStore(ctx context.Context, cfg *config.Config) (auth.SessionStore, func(), error) {
	if cfg.RedisURL == "" {
		return auth.NewMemorySessionStore(), func() {}, nil
	}
	store, err := auth.NewRedisSessionStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	store, closeStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to session store")
	}
	defer closeStore()

	secret, err := sessionSecret(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("session secret")
	}
	tokens, err := auth.NewTokenIssuer(secret)
	if err != nil {
		logger.Fatal().Err(err).Msg("token issuer")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e := newServer(cfg, logger, pool, store, tokens, reg)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance with the middleware chain and every
// route registered.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, store auth.SessionStore,
	tokens *auth.TokenIssuer, reg *prometheus.Registry) *echo.Echo {

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	httpMetrics := middleware.NewHTTPMetrics(reg)
	recordAccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clinic",
		Name:      "patient_record_access_total",
		Help:      "Patient-scoped API requests by role and action.",
	}, []string{"role", "action"})
	reg.MustRegister(recordAccess)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, db.ClinicHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(httpMetrics.Middleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, db.Check{Name: "sessions", Ping: store.Ping}))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           cfg.RateLimitIdleTTL,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.RequestTimeout(requestTimeout))
	apiV1.Use(auth.SessionMiddleware(auth.SessionConfig{
		Tokens:              tokens,
		Store:               store,
		Skipper:             auth.Skipper,
		AllowAnonymousAdmin: cfg.IsDev(),
	}))
	apiV1.Use(db.ClinicMiddleware(pool, cfg.DefaultClinic))
	apiV1.Use(middleware.Audit(logger, middleware.AuditRecorderFunc(func(entry middleware.AuditEntry) error {
		if entry.PatientID != "" {
			recordAccess.WithLabelValues(entry.Role, entry.Action).Inc()
		}
		return nil
	})))

	// Records
	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	staffSvc := staff.NewService(staff.NewDoctorRepoPG(pool), staff.NewNurseRepoPG(pool))
	schedulingSvc := scheduling.NewService(scheduling.NewRepoPG(pool), staffSvc)
	clinicalSvc := clinical.NewService(
		clinical.NewVitalsRepoPG(pool),
		clinical.NewDiagnosisRepoPG(pool),
		clinical.NewPrescriptionRepoPG(pool),
	).WithMetrics(clinical.NewMetrics(reg))
	pharmacySvc := pharmacy.NewService(pharmacy.NewRepoPG(pool)).WithMetrics(pharmacy.NewMetrics(reg))

	// Views
	historySvc := history.NewService(patientSvc, schedulingSvc, clinicalSvc)
	reportingSvc := reporting.NewService(reporting.NewRepoPG(pool))

	authenticators := staffSvc.Authenticators()
	if cfg.AdminEmail != "" && cfg.AdminPasswordHash != "" {
		authenticators[auth.RoleAdmin] = auth.AdminAuthenticator{Email: cfg.AdminEmail, PasswordHash: cfg.AdminPasswordHash}
	}
	auth.NewHandler(store, tokens, cfg.SessionTTL, authenticators).RegisterRoutes(apiV1)

	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	staff.NewHandler(staffSvc).RegisterRoutes(apiV1)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)
	clinical.NewHandler(clinicalSvc).RegisterRoutes(apiV1)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(apiV1)
	history.NewHandler(historySvc).RegisterRoutes(apiV1)
	reporting.NewHandler(reportingSvc).RegisterRoutes(apiV1)

	return e
}
