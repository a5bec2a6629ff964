// Пакет server — HTTP-сервер Wallstore с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на reverse proxy.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/wallstore/internal/api/handlers"
	"github.com/bigkaa/wallstore/internal/api/middleware"
	"github.com/bigkaa/wallstore/internal/config"
)

// Server — HTTP-сервер Wallstore.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// guard — middleware проверки сессий; ставится только на привилегированные
// административные маршруты. login/signup/logout и публичный каталог
// работают без него (logout разбирает токен сам, чтобы принимать и
// просроченные).
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, guard *middleware.SessionGuard) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Служебные endpoints
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	// Административные маршруты
	router.Route("/admin", func(r chi.Router) {
		r.Post("/login", handler.Login)
		r.Post("/signup", handler.Signup)
		r.Post("/logout", handler.Logout)

		// Привилегированные — за Guard
		r.Group(func(r chi.Router) {
			r.Use(guard.Middleware())
			r.Get("/details", handler.Details)
			r.Post("/upload", handler.Upload)
			r.Get("/wallpapers", handler.ListWallpapers)
			r.Put("/wallpaper/{id}", handler.UpdateWallpaper)
			r.Delete("/wallpaper/{id}", handler.DeleteWallpaper)
			r.Put("/wallpaper/{id}/visibility", handler.ToggleVisibility)
		})
	})

	// Публичные маршруты
	router.Route("/user", func(r chi.Router) {
		r.Get("/wallpapers", handler.ListPublicWallpapers)
		r.Get("/wallpaper/{id}", handler.DownloadWallpaper)
		r.Get("/wallpaper/{id}/like", handler.LikeWallpaper)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
