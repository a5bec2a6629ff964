// auth.go — сервис аутентификации администраторов.
//
// Политика одной сессии: у администратора не больше одной живой сессии.
// Вход при живой сессии отклоняется (ErrSessionConflict) без вытеснения —
// освободить слот можно только выходом или по таймауту неактивности.
// Гонка параллельных входов разрешается атомарной вставкой в Session
// Registry (первичный ключ admin_id), а не проверкой перед записью.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/wallstore/internal/auth"
	"github.com/bigkaa/wallstore/internal/domain/model"
	"github.com/bigkaa/wallstore/internal/repository"
)

// Минимальная длина пароля администратора.
const minPasswordLength = 8

// AuthService — бизнес-логика аутентификации и сессий.
type AuthService struct {
	accounts repository.AdminAccountRepository
	sessions repository.SessionRepository
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(
	accounts repository.AdminAccountRepository,
	sessions repository.SessionRepository,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		tokens:   tokens,
		logger:   logger.With(slog.String("component", "auth_service")),
	}
}

// Signup создаёт новый административный аккаунт.
// Пароль хэшируется bcrypt, в открытом виде нигде не сохраняется.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*model.AdminAccount, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))

	if name == "" {
		return nil, fmt.Errorf("%w: имя обязательно", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: некорректный email", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: пароль короче %d символов", ErrValidation, minPasswordLength)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("хэширование пароля: %w", err)
	}

	account := &model.AdminAccount{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: email уже зарегистрирован", ErrConflict)
		}
		return nil, fmt.Errorf("создание аккаунта: %w", err)
	}

	s.logger.Info("Создан административный аккаунт",
		slog.String("admin_id", account.ID),
		slog.String("email", account.Email),
	)
	return account, nil
}

// Login проверяет учётные данные и открывает сессию.
// Возвращает подписанный токен. При живой сессии — ErrSessionConflict,
// состояние существующей сессии при этом не меняется.
func (s *AuthService) Login(ctx context.Context, email, password, fingerprint, ip string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Не различаем «нет аккаунта» и «неверный пароль».
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("поиск аккаунта: %w", err)
	}

	if !auth.VerifyPassword(password, account.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, tokenID, err := s.tokens.Mint(account.ID, account.Role)
	if err != nil {
		return "", fmt.Errorf("выпуск токена: %w", err)
	}

	session := &model.SessionRecord{
		AdminID:           account.ID,
		TokenID:           tokenID,
		DeviceFingerprint: fingerprint,
		IP:                ip,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Info("Отклонён вход: уже есть живая сессия",
				slog.String("admin_id", account.ID),
			)
			return "", ErrSessionConflict
		}
		return "", fmt.Errorf("создание сессии: %w", err)
	}

	s.logger.Info("Администратор вошёл в систему",
		slog.String("admin_id", account.ID),
		slog.String("ip", ip),
	)
	return token, nil
}

// Logout закрывает сессию по предъявленному токену.
// Просроченный, но корректно подписанный токен принимается: выход должен
// работать и после истечения срока. Для токена с неверной подписью
// выполняется best-effort очистка по паре (admin_id, token_id) — удалить
// чужую сессию так нельзя, пара не совпадёт; наружу уходит ErrInvalidToken.
// Повторный выход возвращает ErrNotFound.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		// Подпись не сошлась. Пробуем вычитать claims без проверки и
		// удалить точную пару — лишней записи это не тронет.
		unverified, decErr := s.tokens.DecodeUnverified(token)
		if decErr == nil && unverified.Subject != "" && unverified.ID != "" {
			if delErr := s.sessions.Delete(ctx, unverified.Subject, unverified.ID); delErr == nil {
				s.logger.Warn("Сессия закрыта по токену с неверной подписью",
					slog.String("admin_id", unverified.Subject),
				)
			}
		}
		return ErrInvalidToken
	}

	if err := s.sessions.Delete(ctx, claims.Subject, claims.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: живая сессия отсутствует", ErrNotFound)
		}
		return fmt.Errorf("удаление сессии: %w", err)
	}

	s.logger.Info("Администратор вышел из системы",
		slog.String("admin_id", claims.Subject),
	)
	return nil
}

// Details возвращает профиль администратора без хэша пароля.
func (s *AuthService) Details(ctx context.Context, adminID string) (*model.AdminAccount, error) {
	account, err := s.accounts.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение аккаунта: %w", err)
	}
	account.PasswordHash = ""
	return account, nil
}
