// session_reaper.go — фоновая уборка неактивных сессий.
//
// При строгой политике одной сессии потерянный токен (очистка браузера,
// смена устройства) блокирует вход до истечения срока токена. Reaper
// освобождает слот раньше: сессии с last_seen старше WS_SESSION_IDLE_TTL
// удаляются по тикеру WS_SESSION_REAP_INTERVAL.
//
// При WS_SESSION_IDLE_TTL=0 (по умолчанию) уборка выключена — действует
// строгая политика без вытеснения по неактивности.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/wallstore/internal/repository"
)

var reapedSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ws_reaped_sessions_total",
	Help: "Количество сессий, удалённых по таймауту неактивности",
})

// SessionReaper — фоновый сервис удаления неактивных сессий.
type SessionReaper struct {
	sessions repository.SessionRepository
	idleTTL  time.Duration
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSessionReaper создаёт сервис уборки сессий.
// idleTTL == 0 означает, что уборка выключена.
func NewSessionReaper(
	sessions repository.SessionRepository,
	idleTTL, interval time.Duration,
	logger *slog.Logger,
) *SessionReaper {
	return &SessionReaper{
		sessions: sessions,
		idleTTL:  idleTTL,
		interval: interval,
		logger:   logger.With(slog.String("component", "session_reaper")),
	}
}

// Start запускает фоновую горутину с периодической уборкой.
// Вызывается один раз при старте приложения.
func (r *SessionReaper) Start(ctx context.Context) {
	if r.idleTTL == 0 {
		r.logger.Info("Уборка неактивных сессий выключена (WS_SESSION_IDLE_TTL=0)")
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		r.logger.Info("Уборка неактивных сессий запущена",
			slog.String("idle_ttl", r.idleTTL.String()),
			slog.String("interval", r.interval.String()),
		)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Уборка неактивных сессий остановлена")
				return
			case <-ticker.C:
				r.reap(ctx)
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (r *SessionReaper) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.done != nil {
		<-r.done
	}
}

// reap выполняет один проход уборки.
func (r *SessionReaper) reap(ctx context.Context) {
	cutoff := time.Now().Add(-r.idleTTL)

	deleted, err := r.sessions.DeleteIdle(ctx, cutoff)
	if err != nil {
		r.logger.Error("Ошибка уборки неактивных сессий", slog.String("error", err.Error()))
		return
	}

	if deleted > 0 {
		reapedSessionsTotal.Add(float64(deleted))
		r.logger.Info("Неактивные сессии удалены", slog.Int("count", deleted))
	}
}
