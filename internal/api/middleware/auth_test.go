package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/wallstore/internal/auth"
	"github.com/bigkaa/wallstore/internal/domain/model"
	"github.com/bigkaa/wallstore/internal/repository"
)

// fakeSessions — in-memory реестр сессий для тестов middleware.
type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*model.SessionRecord
	touched  int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*model.SessionRecord{}}
}

func (f *fakeSessions) Create(_ context.Context, s *model.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.AdminID]; ok {
		return repository.ErrConflict
	}
	cp := *s
	f.sessions[s.AdminID] = &cp
	return nil
}

func (f *fakeSessions) GetByAdminID(_ context.Context, adminID string) (*model.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[adminID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Delete(_ context.Context, adminID, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[adminID]
	if !ok || s.TokenID != tokenID {
		return repository.ErrNotFound
	}
	delete(f.sessions, adminID)
	return nil
}

func (f *fakeSessions) TouchLastSeen(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	return nil
}

func (f *fakeSessions) DeleteIdle(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func newTestGuard(t *testing.T) (*SessionGuard, *auth.TokenManager, *fakeSessions) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour, 0)
	sessions := newFakeSessions()
	return NewSessionGuard(tokens, sessions, logger), tokens, sessions
}

// guardedHandler возвращает обработчик, пишущий claims из контекста.
func guardedHandler(t *testing.T, gotClaims **AuthClaims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionGuard_ValidToken(t *testing.T) {
	guard, tokens, sessions := newTestGuard(t)

	token, tokenID, err := tokens.Mint("admin-1", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Mint() вернул ошибку: %v", err)
	}
	if err := sessions.Create(context.Background(), &model.SessionRecord{
		AdminID: "admin-1",
		TokenID: tokenID,
	}); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	var claims *AuthClaims
	handler := guard.Middleware()(guardedHandler(t, &claims))

	req := httptest.NewRequest(http.MethodGet, "/admin/wallpapers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", rec.Code)
	}
	if claims == nil {
		t.Fatal("claims не попали в контекст")
	}
	if claims.AdminID != "admin-1" || claims.TokenID != tokenID || claims.Role != model.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
	if sessions.touched != 1 {
		t.Errorf("last_seen обновлён %d раз, ожидается 1", sessions.touched)
	}
}

func TestSessionGuard_Rejections(t *testing.T) {
	guard, tokens, sessions := newTestGuard(t)
	ctx := context.Background()

	// Живая сессия admin-1 с токеном tokenLive
	tokenLive, liveID, err := tokens.Mint("admin-1", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Mint() вернул ошибку: %v", err)
	}
	if err := sessions.Create(ctx, &model.SessionRecord{AdminID: "admin-1", TokenID: liveID}); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	// Токен прошлой сессии того же администратора (другой jti)
	tokenStale, _, err := tokens.Mint("admin-1", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Mint() вернул ошибку: %v", err)
	}

	// Токен администратора без сессии
	tokenNoSession, _, err := tokens.Mint("admin-2", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Mint() вернул ошибку: %v", err)
	}

	// Токен с чужой подписью
	foreign := auth.NewTokenManager([]byte("another-secret-value-32-bytes!!!"), time.Hour, 0)
	tokenForged, _, err := foreign.Mint("admin-1", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Mint() вернул ошибку: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "без заголовка", header: ""},
		{name: "не Bearer", header: "Basic dXNlcjpwYXNz"},
		{name: "мусор вместо токена", header: "Bearer not-a-jwt"},
		{name: "чужая подпись", header: "Bearer " + tokenForged},
		{name: "токен прошлой сессии", header: "Bearer " + tokenStale},
		{name: "сессия отсутствует", header: "Bearer " + tokenNoSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var claims *AuthClaims
			handler := guard.Middleware()(guardedHandler(t, &claims))

			req := httptest.NewRequest(http.MethodGet, "/admin/wallpapers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("статус = %d, ожидается 401", rec.Code)
			}
			if claims != nil {
				t.Error("claims попали в контекст при отклонённом запросе")
			}
			var body struct {
				Message string `json:"message"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Errorf("тело ответа не JSON: %v", err)
			}
			if body.Message == "" {
				t.Error("тело ответа без message")
			}
		})
	}

	// Живой токен после всех отклонений по-прежнему работает
	var claims *AuthClaims
	handler := guard.Middleware()(guardedHandler(t, &claims))
	req := httptest.NewRequest(http.MethodGet, "/admin/wallpapers", nil)
	req.Header.Set("Authorization", "Bearer "+tokenLive)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("живой токен отклонён: статус %d", rec.Code)
	}
}

// TestSessionGuard_RevokedAfterLogout воспроизводит отзыв токена:
// после удаления сессии корректно подписанный токен перестаёт действовать.
func TestSessionGuard_RevokedAfterLogout(t *testing.T) {
	guard, tokens, sessions := newTestGuard(t)
	ctx := context.Background()

	token, tokenID, err := tokens.Mint("admin-1", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Mint() вернул ошибку: %v", err)
	}
	if err := sessions.Create(ctx, &model.SessionRecord{AdminID: "admin-1", TokenID: tokenID}); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	var claims *AuthClaims
	handler := guard.Middleware()(guardedHandler(t, &claims))

	req := httptest.NewRequest(http.MethodGet, "/admin/wallpapers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("до выхода: статус = %d, ожидается 200", rec.Code)
	}

	// Выход
	if err := sessions.Delete(ctx, "admin-1", tokenID); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/wallpapers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("после выхода: статус = %d, ожидается 401", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "корректный Bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "регистр не важен", header: "bearer abc", want: "abc"},
		{name: "без заголовка", header: "", want: ""},
		{name: "не Bearer", header: "Basic abc", want: ""},
		{name: "без токена", header: "Bearer", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := BearerToken(req); got != tt.want {
				t.Errorf("BearerToken() = %q, ожидается %q", got, tt.want)
			}
		})
	}
}
