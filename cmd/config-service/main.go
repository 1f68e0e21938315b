package main

import (
	"fmt"
	"os"

	"config-service/internal/auth"
	"config-service/internal/config"
	"config-service/internal/db"
	httphandler "config-service/internal/http"
	"config-service/internal/http/middleware"
	"config-service/internal/logger"
	"config-service/internal/repository"
	"config-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	lockRepo := repository.NewLockRuleRepository(database)
	objectiveRepo := repository.NewObjectiveRepository(database)
	permissionRepo := repository.NewPermissionRepository(database)
	activityRepo := repository.NewActivityRepository(database)

	lockService := service.NewLockService(lockRepo, objectiveRepo, activityRepo, cfg.Lock.FailOpen, appLogger)
	permissionService := service.NewPermissionService(permissionRepo, objectiveRepo, activityRepo, lockService, appLogger)
	activityService := service.NewActivityService(activityRepo)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(lockService, permissionService, activityService, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Bool("lock_fail_open", cfg.Lock.FailOpen).Msg("starting config service")

	if err := router.Run(addr); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}
