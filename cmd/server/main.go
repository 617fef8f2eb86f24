package main

import (
	"github.com/sirupsen/logrus"

	"product-recommender/backend/internal/api"
	"product-recommender/backend/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logrus.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()
	logrus.SetLevel(cfg.LogLevel)

	server, err := api.NewServer(api.Config{
		DataPath:      cfg.DataPath,
		AllowedOrigin: cfg.AllowedOrigin,
		AIConfig:      cfg.AI,
		AuditDBPath:   cfg.AuditDBPath,
		SilentDB:      cfg.LogLevel < logrus.DebugLevel,
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close audit database")
		}
	}()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	logrus.Infof("starting product recommender backend on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
