package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/multierr"

	"github.com/2beens/gymstreak/internal/attendance"
	"github.com/2beens/gymstreak/internal/auth"
	"github.com/2beens/gymstreak/internal/config"
	"github.com/2beens/gymstreak/internal/db"
	"github.com/2beens/gymstreak/internal/events"
	"github.com/2beens/gymstreak/internal/middleware"
	"github.com/2beens/gymstreak/internal/session"
	"github.com/2beens/gymstreak/internal/streak"
	"github.com/2beens/gymstreak/internal/telemetry/metrics"
	"github.com/2beens/gymstreak/internal/telemetry/tracing"
	"github.com/2beens/gymstreak/internal/workouts"
	"github.com/2beens/gymstreak/pkg"
)

const sessionsCleanupSchedule = "@every 8h"

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool // nil with the memory backend
	redisClient *redis.Client
	rateLimiter middleware.RequestRateLimiter

	loginChecker auth.Checker
	authService  *auth.Service
	sessions     *session.Manager
	catalog      *workouts.Catalog
	publisher    events.Publisher
	repairJob    *streak.RepairJob
	cleanupCron  *cron.Cron

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	PostgresPassword        string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

// storage groups the repositories of one backend.
type storage struct {
	attendance attendance.Repository
	streaks    streak.Repository
	workouts   workouts.Repository
	exercises  workouts.ExerciseRepository
	users      auth.UserRepository
}

func postgresStorage(dbPool *pgxpool.Pool) storage {
	return storage{
		attendance: attendance.NewRepo(dbPool),
		streaks:    streak.NewRepo(dbPool),
		workouts:   workouts.NewRepo(dbPool),
		exercises:  workouts.NewExerciseRepo(dbPool),
		users:      auth.NewUserRepo(dbPool),
	}
}

func memoryStorage() storage {
	return storage{
		attendance: attendance.NewMemoryRepo(),
		streaks:    streak.NewMemoryRepo(),
		workouts:   workouts.NewMemoryRepo(),
		exercises:  workouts.NewMemoryExerciseRepo(workouts.SeedExercises),
		users:      auth.NewMemoryUserRepo(),
	}
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	var (
		dbPool     *pgxpool.Pool
		repos      storage
		collectors []prometheus.Collector
	)
	switch cfg.StorageBackend {
	case config.StorageBackendMemory:
		log.Warnln("using in-memory storage, nothing survives a restart")
		repos = memoryStorage()
	default:
		var err error
		dbPool, err = db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBUser:         cfg.PostgresUser,
			DBPassword:     params.PostgresPassword,
			MaxConns:       cfg.PostgresMaxConns,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}

		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}

		collectors = append(collectors, pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		))
		repos = postgresStorage(dbPool)

		seeded, err := workouts.NewExerciseRepo(dbPool).Seed(ctx, workouts.SeedExercises)
		if err != nil {
			log.Errorf("seed exercise catalog: %s", err)
		} else if seeded > 0 {
			log.Infof("exercise catalog seeded with %d exercises", seeded)
		}
	}

	promRegistry := metrics.SetupPrometheus(collectors...)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "gymstreak-backend", rdb)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaEnabled {
		log.Infof("publishing streak events to kafka topic [%s] %v", cfg.KafkaTopic, cfg.KafkaBrokers)
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	s := newServer(cfg, repos, rdb, metricsManager, publisher)
	s.dbPool = dbPool
	s.versionInfo = params.VersionInfo
	s.promRegistry = promRegistry
	s.otelShutdown = otelShutdown
	s.rateLimiter = redis_rate.NewLimiter(rdb)

	if cfg.StreakRepairEnabled {
		s.repairJob = streak.NewRepairJob(cfg.StreakRepairSchedule, repos.streaks, repos.attendance, metricsManager).
			WithLiveSessions(s.sessions)
	}

	return s, nil
}

// newServer wires the domain services on top of the given storage.
func newServer(
	cfg *config.Config,
	repos storage,
	rdb *redis.Client,
	metricsManager *metrics.Manager,
	publisher events.Publisher,
) *Server {
	ttl := cfg.SessionTTL.Duration
	return &Server{
		config:       cfg,
		redisClient:  rdb,
		loginChecker: auth.NewLoginChecker(ttl, rdb),
		authService:  auth.NewAuthService(repos.users, ttl, rdb),
		sessions: session.NewManager(session.Deps{
			AttendanceRepo: repos.attendance,
			StreakRepo:     repos.streaks,
			WorkoutRepo:    repos.workouts,
			Publisher:      publisher,
			Metrics:        metricsManager,
			Location:       cfg.Location(),
		}),
		catalog:        workouts.NewCatalog(repos.exercises, cfg.ExercisesCacheSizeMB, cfg.ExercisesCacheTTL.Duration),
		publisher:      publisher,
		cleanupCron:    cron.New(),
		metricsManager: metricsManager,
		otelShutdown:   func() {},
	}
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteResponse(w, pkg.ContentType.Text, "I'm OK, thanks ;)", http.StatusOK)
	}).Methods("GET").Name("root")
	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteResponse(w, pkg.ContentType.Text, s.versionInfo, http.StatusOK)
	}).Methods("GET").Name("version")

	var loginLimiters []mux.MiddlewareFunc
	if s.rateLimiter != nil {
		loginLimiters = append(loginLimiters, middleware.RateLimit(
			s.rateLimiter,
			"auth",
			s.config.LoginRateLimitAllowedPerMin,
			s.metricsManager,
		))
	}
	authHandler := auth.NewHandler(s.authService, s.sessions)
	authHandler.SetupRoutes(r, loginLimiters...)

	sessionHandler := session.NewHandler(s.sessions)
	sessionHandler.SetupRoutes(r)

	exercisesHandler := workouts.NewExercisesHandler(s.catalog)
	r.HandleFunc("/exercises/{bodyPart}", exercisesHandler.HandleList).Methods("GET").Name("exercises")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker, s.sessions)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(ctx context.Context, host string, port int) error {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	if _, err := s.cleanupCron.AddFunc(sessionsCleanupSchedule, func() {
		s.cleanupSessions(ctx)
	}); err != nil {
		return fmt.Errorf("add sessions cleanup cron job: %w", err)
	}
	s.cleanupCron.Start()

	if s.repairJob != nil {
		if err := s.repairJob.Start(); err != nil {
			return err
		}
	}

	s.metricsManager.GaugeLifeSignal.Set(1)
	return nil
}

// cleanupSessions removes expired tokens from redis and signs their
// sessions out.
func (s *Server) cleanupSessions(ctx context.Context) {
	removed := s.authService.ScanAndClean(ctx)
	for _, token := range removed {
		s.sessions.SignOut(token)
	}
	if len(removed) > 0 {
		log.Debugf("signed out %d expired sessions, %d users still active", len(removed), s.sessions.Len())
	}
}

// GracefulShutdown stops background jobs and servers, then releases
// connections. All failures are reported together.
func (s *Server) GracefulShutdown() error {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	var err error
	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown http server: %w", shutdownErr))
		}
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		if shutdownErr := s.metricsHttpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown metrics http server: %w", shutdownErr))
		}
		log.Warnln("metrics server shut down")
	}

	if s.repairJob != nil {
		s.repairJob.Stop()
	}
	<-s.cleanupCron.Stop().Done()

	s.sessions.Close()

	if s.publisher != nil {
		if closeErr := s.publisher.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close events publisher: %w", closeErr))
		}
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if closeErr := s.redisClient.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close redis client: %w", closeErr))
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	return err
}
