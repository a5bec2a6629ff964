package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/wallstore/internal/domain/model"
)

// SessionRepository — интерфейс Session Registry над таблицей active_sessions.
// Инвариант «не больше одной живой сессии на администратора» обеспечивается
// первичным ключом admin_id: Create — атомарный insert-if-absent.
type SessionRepository interface {
	// Create создаёт запись сессии. Возвращает ErrConflict, если для
	// администратора уже существует живая сессия. Гонка двух параллельных
	// входов разрешается на стороне PostgreSQL (ON CONFLICT DO NOTHING).
	Create(ctx context.Context, s *model.SessionRecord) error
	// GetByAdminID возвращает живую сессию администратора.
	GetByAdminID(ctx context.Context, adminID string) (*model.SessionRecord, error)
	// Delete удаляет сессию по паре (admin_id, token_id).
	// Возвращает ErrNotFound, если совпадающей записи нет.
	Delete(ctx context.Context, adminID, tokenID string) error
	// TouchLastSeen обновляет last_seen. Best-effort: ошибки не критичны.
	TouchLastSeen(ctx context.Context, adminID, tokenID string) error
	// DeleteIdle удаляет сессии с last_seen старше cutoff.
	// Возвращает количество удалённых записей.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int, error)
}

// sessionRepo — реализация SessionRepository.
type sessionRepo struct {
	db DBTX
}

// NewSessionRepository создаёт репозиторий сессий.
func NewSessionRepository(db DBTX) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s *model.SessionRecord) error {
	// ON CONFLICT DO NOTHING вместо read-then-write: проверка существования
	// и вставка выполняются одной атомарной операцией.
	query := `
		INSERT INTO active_sessions (admin_id, token_id, device_fingerprint, ip)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (admin_id) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		s.AdminID, s.TokenID, s.DeviceFingerprint, s.IP,
	)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: для администратора уже существует живая сессия", ErrConflict)
	}
	return nil
}

func (r *sessionRepo) GetByAdminID(ctx context.Context, adminID string) (*model.SessionRecord, error) {
	query := `
		SELECT admin_id, token_id, device_fingerprint, ip, last_seen, created_at
		FROM active_sessions
		WHERE admin_id = $1`

	s := &model.SessionRecord{}
	err := r.db.QueryRow(ctx, query, adminID).Scan(
		&s.AdminID, &s.TokenID, &s.DeviceFingerprint, &s.IP, &s.LastSeen, &s.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	return s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, adminID, tokenID string) error {
	query := `
		DELETE FROM active_sessions
		WHERE admin_id = $1 AND token_id = $2`

	tag, err := r.db.Exec(ctx, query, adminID, tokenID)
	if err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepo) TouchLastSeen(ctx context.Context, adminID, tokenID string) error {
	query := `
		UPDATE active_sessions
		SET last_seen = now()
		WHERE admin_id = $1 AND token_id = $2`

	if _, err := r.db.Exec(ctx, query, adminID, tokenID); err != nil {
		return fmt.Errorf("ошибка обновления last_seen: %w", err)
	}
	return nil
}

func (r *sessionRepo) DeleteIdle(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM active_sessions
		WHERE last_seen < $1`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления неактивных сессий: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
