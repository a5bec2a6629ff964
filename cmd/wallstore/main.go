// Точка входа Wallstore — административная панель каталога обоев.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт CDN-клиент, сервисный слой и API handlers, запускает фоновые
// задачи (уборка сессий, topologymetrics), HTTP-сервер с session guard
// и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/wallstore/internal/api/handlers"
	"github.com/bigkaa/wallstore/internal/api/middleware"
	"github.com/bigkaa/wallstore/internal/auth"
	"github.com/bigkaa/wallstore/internal/cdn"
	"github.com/bigkaa/wallstore/internal/config"
	"github.com/bigkaa/wallstore/internal/database"
	"github.com/bigkaa/wallstore/internal/repository"
	"github.com/bigkaa/wallstore/internal/server"
	"github.com/bigkaa/wallstore/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Wallstore запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("WS_DEPHEALTH_GROUP") == "" {
		logger.Warn("WS_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL будет идти через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. CDN-клиент
	cdnClient := cdn.New(
		cfg.CDNCloudName,
		cfg.CDNAPIKey,
		cfg.CDNAPISecret,
		cfg.CDNUploadFolder,
		cfg.CDNAPIBaseURL,
		cfg.CDNDeliveryBaseURL,
		logger,
	)
	logger.Info("CDN-клиент создан",
		slog.String("cloud_name", cfg.CDNCloudName),
		slog.String("upload_folder", cfg.CDNUploadFolder),
	)

	// 6. Repositories
	accountRepo := repository.NewAdminAccountRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	wallpaperRepo := repository.NewWallpaperRepository(pool)

	// 7. Token manager (HS256)
	tokenManager := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTTTL, cfg.JWTLeeway)

	// 8. Services
	authSvc := service.NewAuthService(accountRepo, sessionRepo, tokenManager, logger)
	wallpaperSvc := service.NewWallpaperService(wallpaperRepo, cdnClient, logger)

	// 9. Фоновая уборка неактивных сессий
	sessionReaper := service.NewSessionReaper(sessionRepo, cfg.SessionIdleTTL, cfg.SessionReapInterval, logger)
	sessionReaper.Start(ctx)

	// 9.1 topologymetrics — мониторинг зависимостей (PostgreSQL + CDN)
	var dephealthSvc *service.DephealthService
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"wallstore",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.CDNAPIBaseURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 10. Readiness checkers (PostgreSQL + CDN)
	pgChecker := database.NewReadinessChecker(pool)
	cdnChecker := cdn.NewReadinessChecker(cfg.CDNAPIBaseURL, 10*time.Second)
	healthHandler := handlers.NewHealthHandler(pgChecker, cdnChecker)

	// 11. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, authSvc, wallpaperSvc, logger)

	// 12. Session guard для привилегированных маршрутов
	guard := middleware.NewSessionGuard(tokenManager, sessionRepo, logger)

	// 13. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, guard)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	sessionReaper.Stop()

	logger.Info("Wallstore остановлен")
}
