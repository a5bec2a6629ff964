package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/wallstore/internal/domain/model"
)

// AdminAccountRepository — интерфейс доступа к таблице admin_accounts.
type AdminAccountRepository interface {
	// Create создаёт новый административный аккаунт.
	// Возвращает ErrConflict, если email уже занят.
	Create(ctx context.Context, a *model.AdminAccount) error
	// GetByEmail возвращает аккаунт по email.
	GetByEmail(ctx context.Context, email string) (*model.AdminAccount, error)
	// GetByID возвращает аккаунт по UUID.
	GetByID(ctx context.Context, id string) (*model.AdminAccount, error)
}

// adminAccountRepo — реализация AdminAccountRepository.
type adminAccountRepo struct {
	db DBTX
}

// NewAdminAccountRepository создаёт репозиторий административных аккаунтов.
func NewAdminAccountRepository(db DBTX) AdminAccountRepository {
	return &adminAccountRepo{db: db}
}

func (r *adminAccountRepo) Create(ctx context.Context, a *model.AdminAccount) error {
	query := `
		INSERT INTO admin_accounts (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.Name, a.Email, a.PasswordHash, a.Role,
	).Scan(&a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: аккаунт с таким email уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания аккаунта: %w", err)
	}
	return nil
}

func (r *adminAccountRepo) GetByEmail(ctx context.Context, email string) (*model.AdminAccount, error) {
	return r.get(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM admin_accounts
		WHERE email = $1`, email)
}

func (r *adminAccountRepo) GetByID(ctx context.Context, id string) (*model.AdminAccount, error) {
	return r.get(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM admin_accounts
		WHERE id = $1`, id)
}

func (r *adminAccountRepo) get(ctx context.Context, query string, arg any) (*model.AdminAccount, error) {
	a := &model.AdminAccount{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения аккаунта: %w", err)
	}
	return a, nil
}
