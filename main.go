// @title ClassAssess API
// @version 1.0
// @description Grading and appeals backend for student test submissions.
// @termsOfService http://swagger.io/terms/

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"classassess_backend/internal/app"
	"classassess_backend/internal/config"
	"classassess_backend/pkg/configwatcher"
	"classassess_backend/pkg/logger"
	"flag"
	"log"

	"go.uber.org/zap"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migration and exit")
	migrate := flag.Bool("migrate", false, "force database migration on startup")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	go configwatcher.WatchConfig("configs", func(updated *config.Config) {
		logger.Log.Info("configuration reloaded",
			zap.Strings("allowedOrigins", updated.CORS.AllowedOrigins))
	})

	application.Run()
}
