// auth.go — обработчики аутентификации администраторов.
// POST /admin/login, POST /admin/signup, POST /admin/logout, GET /admin/details.
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/bigkaa/wallstore/internal/api/errors"
	"github.com/bigkaa/wallstore/internal/api/middleware"
	"github.com/bigkaa/wallstore/internal/service"
)

// loginRequest — тело запроса POST /admin/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signupRequest — тело запроса POST /admin/signup.
type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// deviceFingerprint строит отпечаток устройства из заголовков запроса.
// Не криптографическая идентификация — диагностический атрибут сессии.
func deviceFingerprint(r *http.Request) string {
	sum := sha256.Sum256([]byte(r.UserAgent() + "|" + r.Header.Get("Accept-Language")))
	return hex.EncodeToString(sum[:16])
}

// clientIP извлекает IP клиента: X-Forwarded-For (первый адрес), иначе RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Login — POST /admin/login.
// 200 {token} | 400 | 401 неверные учётные данные | 403 живая сессия.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if req.Email == "" || req.Password == "" {
		apierrors.ValidationError(w, "Поля email и password обязательны")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password, deviceFingerprint(r), clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			apierrors.Unauthorized(w, "Неверный email или пароль")
		case errors.Is(err, service.ErrSessionConflict):
			apierrors.Forbidden(w, "Уже выполнен вход с другого устройства, сначала выйдите")
		default:
			h.logger.Error("Ошибка входа", slog.String("error", err.Error()))
			apierrors.InternalError(w, "Внутренняя ошибка сервера")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Signup — POST /admin/signup.
// 201 | 400 (включая занятый email).
func (h *APIHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	account, err := h.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrConflict):
			apierrors.ValidationError(w, "Email уже зарегистрирован")
		default:
			h.logger.Error("Ошибка регистрации", slog.String("error", err.Error()))
			apierrors.InternalError(w, "Внутренняя ошибка сервера")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Аккаунт создан",
		"id":      account.ID,
	})
}

// Logout — POST /admin/logout.
// Токен берётся только из заголовка Authorization; Guard здесь не стоит —
// выход должен работать и с просроченным токеном.
// 204 | 400 без токена | 401 невалидный токен | 404 сессии нет.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		apierrors.ValidationError(w, "Требуется заголовок Authorization: Bearer <token>")
		return
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			apierrors.Unauthorized(w, "Невалидный токен")
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Живая сессия отсутствует")
		default:
			h.logger.Error("Ошибка выхода", slog.String("error", err.Error()))
			apierrors.InternalError(w, "Внутренняя ошибка сервера")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Details — GET /admin/details (за Guard).
// 200 {name, email, role, createdAt}.
func (h *APIHandler) Details(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	account, err := h.auth.Details(r.Context(), claims.AdminID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Аккаунт не найден")
			return
		}
		h.logger.Error("Ошибка получения профиля", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"name":      account.Name,
		"email":     account.Email,
		"role":      account.Role,
		"createdAt": account.CreatedAt.UTC().Format(time.RFC3339),
	})
}
