// auth.go — middleware аутентификации Wallstore.
//
// Двойная проверка каждого привилегированного запроса:
//  1. криптографическая — подпись и срок токена (HS256);
//  2. по реестру — в Session Registry есть живая сессия этого
//     администратора с тем же token_id.
// Вторая проверка делает возможным отзыв токена до истечения срока:
// после выхода корректно подписанный токен перестаёт действовать.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/wallstore/internal/api/errors"
	"github.com/bigkaa/wallstore/internal/auth"
	"github.com/bigkaa/wallstore/internal/repository"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyClaims — извлечённые claims в контексте запроса.
const ContextKeyClaims contextKey = "auth_claims"

// AuthClaims — проверенные данные субъекта запроса.
// Помещаются в контекст запроса для downstream handlers.
type AuthClaims struct {
	// AdminID — sub из токена (UUID администратора).
	AdminID string
	// Role — роль из токена.
	Role string
	// TokenID — jti токена (совпадает с token_id живой сессии).
	TokenID string
}

// SessionGuard — middleware проверки токена и живой сессии.
type SessionGuard struct {
	tokens   *auth.TokenManager
	sessions repository.SessionRepository
	logger   *slog.Logger
}

// NewSessionGuard создаёт middleware проверки сессий.
func NewSessionGuard(tokens *auth.TokenManager, sessions repository.SessionRepository, logger *slog.Logger) *SessionGuard {
	return &SessionGuard{
		tokens:   tokens,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "session_guard")),
	}
}

// BearerToken извлекает Bearer-токен из заголовка Authorization.
// Возвращает пустую строку, если заголовок отсутствует или некорректен.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Middleware возвращает HTTP middleware двойной проверки.
// Порядок: извлечение Bearer → проверка подписи и срока → сверка с
// Session Registry (наличие записи и совпадение token_id) → claims в контекст.
func (g *SessionGuard) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := BearerToken(r)
			if tokenString == "" {
				apierrors.Unauthorized(w, "Требуется заголовок Authorization: Bearer <token>")
				return
			}

			claims, err := g.tokens.Verify(tokenString)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					apierrors.Unauthorized(w, "Срок действия токена истёк")
					return
				}
				g.logger.Debug("Токен не прошёл проверку",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный токен")
				return
			}

			// Проверка по реестру: подпись верна, но сессия могла быть
			// закрыта выходом или убрана по таймауту.
			session, err := g.sessions.GetByAdminID(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					apierrors.Unauthorized(w, "Сессия завершена, требуется повторный вход")
					return
				}
				g.logger.Error("Ошибка обращения к реестру сессий", slog.String("error", err.Error()))
				apierrors.InternalError(w, "Внутренняя ошибка сервера")
				return
			}
			if session.TokenID != claims.ID {
				// Токен от прошлой сессии этого же администратора.
				apierrors.Unauthorized(w, "Токен отозван, требуется повторный вход")
				return
			}

			// Best-effort: продлеваем last_seen, ошибка не прерывает запрос.
			if err := g.sessions.TouchLastSeen(r.Context(), claims.Subject, claims.ID); err != nil {
				g.logger.Warn("Не удалось обновить last_seen", slog.String("error", err.Error()))
			}

			authClaims := &AuthClaims{
				AdminID: claims.Subject,
				Role:    claims.Role,
				TokenID: claims.ID,
			}
			ctx := context.WithValue(r.Context(), ContextKeyClaims, authClaims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext извлекает AuthClaims из контекста запроса.
// Возвращает nil, если claims не найдены.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}
