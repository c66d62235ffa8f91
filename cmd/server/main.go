package main // Entry point package

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/sirupsen/logrus"
    "golang.org/x/sync/errgroup"

    "github.com/iliyamo/stagepass/internal/config"
    "github.com/iliyamo/stagepass/internal/database"
    "github.com/iliyamo/stagepass/internal/handler"
    "github.com/iliyamo/stagepass/internal/metrics"
    "github.com/iliyamo/stagepass/internal/middleware"
    "github.com/iliyamo/stagepass/internal/queue"
    "github.com/iliyamo/stagepass/internal/repository"
    "github.com/iliyamo/stagepass/internal/repository/memory"
    "github.com/iliyamo/stagepass/internal/reservation"
    "github.com/iliyamo/stagepass/internal/router"
    "github.com/iliyamo/stagepass/internal/seed"
    "github.com/iliyamo/stagepass/internal/service"
)

func main() {
    cfg := config.Load()
    logger := newLogger(cfg)

    if err := run(cfg, logger); err != nil {
        logger.WithError(err).Fatal("server stopped")
    }
}

// backend groups the stores of one STORAGE_DRIVER.
type backend struct {
    catalog handler.CatalogStore
    users   handler.UserStore
    tokens  handler.TokenStore
    resCat  reservation.Catalog
    store   reservation.Store
    close   func() error
}

func run(cfg config.Config, logger *logrus.Logger) error {
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    be, err := openBackend(cfg, logger)
    if err != nil {
        return err
    }
    defer func() {
        if err := be.close(); err != nil {
            logger.WithError(err).Error("failed to close storage")
        }
    }()

    if cfg.SeedOnStart {
        s := &seed.Seeder{Catalog: be.catalog, Users: be.users, BcryptCost: cfg.BcryptCost, Log: logger}
        if _, err := s.Run(ctx, cfg.IsProduction()); err != nil {
            return fmt.Errorf("seeding: %w", err)
        }
    }

    rdb := config.NewRedisClient()
    if rdb != nil {
        defer func() { _ = rdb.Close() }()
    }

    reg := prometheus.NewRegistry()
    reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

    opts := []reservation.Option{
        reservation.WithLogger(logger),
        reservation.WithRecorder(metrics.NewCollector(reg)),
    }
    var publisher *service.Publisher
    if cfg.RabbitMQURL != "" {
        publisher = service.NewPublisher(cfg.RabbitMQURL, logger)
        defer func() { _ = publisher.Close() }()
        opts = append(opts, reservation.WithPublisher(publisher))
    } else {
        logger.Warn("RABBITMQ_URL not set; booking events disabled")
    }
    engine := reservation.NewEngine(be.resCat, be.store, opts...)

    e := router.New(router.Options{
        JWTSecret:    cfg.JWTSecret,
        Logger:       logger,
        Metrics:      metrics.Handler(reg),
        CORSOrigins:  cfg.CORSOrigins,
        APILimiter:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
        AuthLimiter:  middleware.NewTokenBucket(config.LoadAuthRateLimitConfig(), rdb),
        CatalogCache: middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
        Auth:         handler.NewAuthHandler(cfg, be.users, be.tokens, logger),
        Catalog:      handler.NewCatalogHandler(be.catalog, engine, logger),
        Booking:      handler.NewBookingHandler(engine, logger),
        Admin:        handler.NewAdminHandler(be.catalog, logger),
    })

    g, runCtx := errgroup.WithContext(ctx)

    if cfg.RabbitMQURL != "" {
        g.Go(func() error {
            return queue.NewConsumer(cfg.RabbitMQURL, logger).Run(runCtx)
        })
    }

    g.Go(func() error {
        addr := ":" + cfg.Port
        logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "storage": cfg.StorageDriver}).Info("starting HTTP server")
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            return fmt.Errorf("starting http server: %w", err)
        }
        return nil
    })

    g.Go(func() error {
        <-runCtx.Done()

        shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
        defer cancel()

        logger.Info("shutting down HTTP server")
        if err := e.Shutdown(shutdownCtx); err != nil {
            return fmt.Errorf("shutting down http server: %w", err)
        }
        return nil
    })

    if err := g.Wait(); err != nil {
        return err
    }
    logger.Info("shutdown complete")
    return nil
}

func openBackend(cfg config.Config, logger *logrus.Logger) (*backend, error) {
    if cfg.StorageDriver == config.StorageMemory {
        logger.Warn("using in-memory storage; data is lost on restart")
        st := memory.New()
        return &backend{
            catalog: st,
            users:   st.Users(),
            tokens:  st.Tokens(),
            resCat:  st,
            store:   st,
            close:   func() error { return nil },
        }, nil
    }

    dsn := database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err := database.RunMigrations(dsn); err != nil {
        return nil, fmt.Errorf("running migrations: %w", err)
    }
    db, err := database.Open(dsn)
    if err != nil {
        return nil, fmt.Errorf("connecting to db: %w", err)
    }
    catalog := repository.NewCatalog(db)
    return &backend{
        catalog: catalog,
        users:   repository.NewUserRepo(db),
        tokens:  repository.NewTokenRepo(db),
        resCat:  catalog,
        store:   repository.NewStore(db),
        close:   db.Close,
    }, nil
}

// newLogger configures logrus: JSON outside development, level from
// LOG_LEVEL.
func newLogger(cfg config.Config) *logrus.Logger {
    logger := logrus.New()
    logger.SetOutput(os.Stdout)
    if cfg.Env == "dev" || cfg.Env == "development" {
        logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    } else {
        logger.SetFormatter(&logrus.JSONFormatter{})
    }
    level, err := logrus.ParseLevel(cfg.LogLevel)
    if err != nil {
        logger.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
        level = logrus.InfoLevel
    }
    logger.SetLevel(level)
    return logger
}
