package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/taskboard/internal/auth"
	"github.com/zsiec/taskboard/internal/client"
	"github.com/zsiec/taskboard/internal/config"
	"github.com/zsiec/taskboard/internal/dashboard"
	"github.com/zsiec/taskboard/internal/health"
	"github.com/zsiec/taskboard/internal/logger"
	"github.com/zsiec/taskboard/pkg/version"
)

// app is everything both front ends share.
type app struct {
	cfg        *config.Config
	log        *logrus.Logger
	redis      redis.UniversalClient
	client     *client.Client
	controller *dashboard.Controller
	health     *health.Manager
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.WithFields(logrus.Fields{
		"version":  version.GetInfo().Short(),
		"cluster":  cfg.Dashboard.ClusterID,
		"resource": cfg.Dashboard.ResourceType + "/" + cfg.Dashboard.ResourceName,
		"backend":  cfg.Backend.BaseURL,
	}).Info("Starting taskboard")

	store, redisClient, err := auth.NewStore(cfg)
	if err != nil {
		return nil, err
	}

	resolver := auth.NewResolver(cfg.Auth, store, logger.ForComponent(log, "auth"))
	backend := client.New(cfg.Backend, client.NewEndpoints(cfg.Dashboard), resolver, logger.ForComponent(log, "client"))
	controller := dashboard.NewController(cfg.Dashboard, backend, logger.NewLogrusAdapter(logrus.NewEntry(log)))

	healthMgr := health.NewManager(logger.NewLogrusAdapter(logrus.NewEntry(log)))
	healthMgr.Register(health.NewBackendChecker(backend, cfg.Backend.BaseURL))
	if redisClient != nil {
		healthMgr.Register(health.NewRedisChecker(redisClient, cfg.Redis.KeyPrefix))
	}

	return &app{
		cfg:        cfg,
		log:        log,
		redis:      redisClient,
		client:     backend,
		controller: controller,
		health:     healthMgr,
	}, nil
}

func (a *app) close() {
	a.controller.Unmount()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Error("Failed to close Redis connection")
		}
	}
}
