package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/wallstore/internal/auth"
	"github.com/bigkaa/wallstore/internal/config"
	"github.com/bigkaa/wallstore/internal/database"
	"github.com/bigkaa/wallstore/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool; контейнер и пул закрываются через t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("wallstore_test"),
		postgres.WithUsername("wallstore"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	t.Setenv("WS_DB_HOST", host)
	t.Setenv("WS_DB_PORT", port.Port())
	t.Setenv("WS_DB_NAME", "wallstore_test")
	t.Setenv("WS_DB_USER", "wallstore")
	t.Setenv("WS_DB_PASSWORD", "test-password")
	t.Setenv("WS_DB_SSL_MODE", "disable")
	t.Setenv("WS_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("WS_CDN_CLOUD_NAME", "test")
	t.Setenv("WS_CDN_API_KEY", "test")
	t.Setenv("WS_CDN_API_SECRET", "test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// createTestAccount создаёт тестовый аккаунт и возвращает его.
func createTestAccount(t *testing.T, pool *pgxpool.Pool, email string) *model.AdminAccount {
	t.Helper()

	hash, err := auth.HashPassword("test-password")
	if err != nil {
		t.Fatalf("HashPassword() вернул ошибку: %v", err)
	}

	a := &model.AdminAccount{
		ID:           uuid.New().String(),
		Name:         "Test Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := NewAdminAccountRepository(pool).Create(context.Background(), a); err != nil {
		t.Fatalf("Create() аккаунта вернул ошибку: %v", err)
	}
	return a
}

// --- Тесты AdminAccountRepository ---

func TestAdminAccountCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewAdminAccountRepository(pool)

	a := createTestAccount(t, pool, "alice@example.com")
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// GetByEmail
	got, err := repo.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() вернул ошибку: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("GetByEmail().ID = %q, ожидается %q", got.ID, a.ID)
	}

	// GetByID
	got, err = repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID() вернул ошибку: %v", err)
	}
	if got.Email != a.Email {
		t.Errorf("GetByID().Email = %q, ожидается %q", got.Email, a.Email)
	}

	// Дублирующийся email → ErrConflict
	dup := &model.AdminAccount{
		ID:           uuid.New().String(),
		Name:         "Clone",
		Email:        "alice@example.com",
		PasswordHash: a.PasswordHash,
		Role:         model.RoleAdmin,
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Create() с занятым email = %v, ожидается ErrConflict", err)
	}

	// Несуществующий аккаунт → ErrNotFound
	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByEmail() несуществующего = %v, ожидается ErrNotFound", err)
	}
}

// --- Тесты SessionRepository ---

func TestSessionLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(pool)
	a := createTestAccount(t, pool, "session@example.com")

	s := &model.SessionRecord{
		AdminID:           a.ID,
		TokenID:           uuid.New().String(),
		DeviceFingerprint: "fp-1",
		IP:                "192.0.2.1",
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() сессии вернул ошибку: %v", err)
	}

	// Повторный вход — конфликт, существующая запись не меняется
	second := &model.SessionRecord{
		AdminID:           a.ID,
		TokenID:           uuid.New().String(),
		DeviceFingerprint: "fp-2",
		IP:                "192.0.2.2",
	}
	if err := repo.Create(ctx, second); !errors.Is(err, ErrConflict) {
		t.Fatalf("Create() второй сессии = %v, ожидается ErrConflict", err)
	}

	got, err := repo.GetByAdminID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByAdminID() вернул ошибку: %v", err)
	}
	if got.TokenID != s.TokenID {
		t.Errorf("после конфликта TokenID = %q, ожидается исходный %q", got.TokenID, s.TokenID)
	}
	if got.DeviceFingerprint != "fp-1" {
		t.Errorf("после конфликта DeviceFingerprint = %q, ожидается fp-1", got.DeviceFingerprint)
	}

	// TouchLastSeen
	if err := repo.TouchLastSeen(ctx, a.ID, s.TokenID); err != nil {
		t.Errorf("TouchLastSeen() вернул ошибку: %v", err)
	}

	// Delete с неверным token_id — ErrNotFound, запись остаётся
	if err := repo.Delete(ctx, a.ID, "wrong-token-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() с чужим token_id = %v, ожидается ErrNotFound", err)
	}

	// Delete с верной парой
	if err := repo.Delete(ctx, a.ID, s.TokenID); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}

	// Повторный Delete — идемпотентный no-op c ErrNotFound
	if err := repo.Delete(ctx, a.ID, s.TokenID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete() = %v, ожидается ErrNotFound", err)
	}

	if _, err := repo.GetByAdminID(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByAdminID() после удаления = %v, ожидается ErrNotFound", err)
	}
}

// TestSessionCreate_ConcurrentLogins проверяет инвариант «не больше одной
// живой сессии» под параллельными входами: из N одновременных Create
// ровно один должен пройти.
func TestSessionCreate_ConcurrentLogins(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(pool)
	a := createTestAccount(t, pool, "race@example.com")

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := &model.SessionRecord{
				AdminID: a.ID,
				TokenID: uuid.New().String(),
			}
			results <- repo.Create(ctx, s)
		}()
	}
	wg.Wait()
	close(results)

	created, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Errorf("неожиданная ошибка Create(): %v", err)
		}
	}

	if created != 1 {
		t.Errorf("создано %d сессий, ожидается ровно 1", created)
	}
	if conflicts != attempts-1 {
		t.Errorf("конфликтов %d, ожидается %d", conflicts, attempts-1)
	}
}

func TestSessionDeleteIdle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(pool)

	a1 := createTestAccount(t, pool, "idle1@example.com")
	a2 := createTestAccount(t, pool, "idle2@example.com")

	for _, a := range []*model.AdminAccount{a1, a2} {
		s := &model.SessionRecord{AdminID: a.ID, TokenID: uuid.New().String()}
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create() вернул ошибку: %v", err)
		}
	}

	// Состариваем одну сессию вручную
	_, err := pool.Exec(ctx,
		`UPDATE active_sessions SET last_seen = now() - interval '2 hours' WHERE admin_id = $1`,
		a1.ID)
	if err != nil {
		t.Fatalf("не удалось состарить сессию: %v", err)
	}

	deleted, err := repo.DeleteIdle(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteIdle() вернул ошибку: %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteIdle() удалил %d, ожидается 1", deleted)
	}

	if _, err := repo.GetByAdminID(ctx, a1.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("неактивная сессия не удалена: %v", err)
	}
	if _, err := repo.GetByAdminID(ctx, a2.ID); err != nil {
		t.Errorf("активная сессия удалена ошибочно: %v", err)
	}
}

// --- Тесты WallpaperRepository ---

func TestWallpaperCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewWallpaperRepository(pool)

	w := &model.Wallpaper{
		ID:          uuid.New().String(),
		Title:       "Sunset",
		Description: "Закат над горами",
		Category:    "nature",
		Tags:        []string{"sunset", "mountains", "sunset"},
		ImageURL:    "https://res.cloudinary.com/test/image/upload/v1/wallpapers/sunset.jpg",
		PublicID:    "wallpapers/sunset",
		Visibility:  true,
		Width:       3840,
		Height:      2160,
		SizeBytes:   1048576,
		UploadedBy:  "alice@example.com",
	}
	if err := repo.Create(ctx, w); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}
	if w.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	got, err := repo.GetByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetByID() вернул ошибку: %v", err)
	}
	// Порядок и дубликаты тегов сохраняются
	if len(got.Tags) != 3 || got.Tags[0] != "sunset" || got.Tags[2] != "sunset" {
		t.Errorf("Tags = %v, ожидается [sunset mountains sunset]", got.Tags)
	}

	// Update
	got.Title = "Sunset v2"
	got.Tags = []string{"evening"}
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() вернул ошибку: %v", err)
	}
	got2, err := repo.GetByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetByID() вернул ошибку: %v", err)
	}
	if got2.Title != "Sunset v2" || len(got2.Tags) != 1 {
		t.Errorf("Update() не применился: %+v", got2)
	}

	// Delete
	if err := repo.Delete(ctx, w.ID); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}
	if _, err := repo.GetByID(ctx, w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() после удаления = %v, ожидается ErrNotFound", err)
	}
	if err := repo.Delete(ctx, w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete() = %v, ожидается ErrNotFound", err)
	}
}

func TestWallpaperVisibilityAndCounters(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewWallpaperRepository(pool)

	w := &model.Wallpaper{
		ID:         uuid.New().String(),
		Title:      "Ocean",
		ImageURL:   "https://res.cloudinary.com/test/image/upload/v1/wallpapers/ocean.jpg",
		PublicID:   "wallpapers/ocean",
		Visibility: true,
	}
	if err := repo.Create(ctx, w); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	// Скачивание видимой записи инкрементирует счётчик
	got, err := repo.IncrementDownloads(ctx, w.ID)
	if err != nil {
		t.Fatalf("IncrementDownloads() вернул ошибку: %v", err)
	}
	if got.Downloads != 1 {
		t.Errorf("Downloads = %d, ожидается 1", got.Downloads)
	}

	// Лайк
	got, err = repo.IncrementLikes(ctx, w.ID)
	if err != nil {
		t.Fatalf("IncrementLikes() вернул ошибку: %v", err)
	}
	if got.Likes != 1 {
		t.Errorf("Likes = %d, ожидается 1", got.Likes)
	}

	// Двойной toggle возвращает исходное значение
	t1, err := repo.ToggleVisibility(ctx, w.ID)
	if err != nil {
		t.Fatalf("ToggleVisibility() вернул ошибку: %v", err)
	}
	if t1.Visibility {
		t.Error("после первого toggle Visibility = true, ожидается false")
	}

	// Скрытая запись недоступна для скачивания
	if _, err := repo.IncrementDownloads(ctx, w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("IncrementDownloads() скрытой записи = %v, ожидается ErrNotFound", err)
	}

	t2, err := repo.ToggleVisibility(ctx, w.ID)
	if err != nil {
		t.Fatalf("ToggleVisibility() вернул ошибку: %v", err)
	}
	if !t2.Visibility {
		t.Error("после второго toggle Visibility = false, ожидается true")
	}
}

func TestWallpaperListPagination(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewWallpaperRepository(pool)

	// 5 записей, две скрытые
	for i := 0; i < 5; i++ {
		w := &model.Wallpaper{
			ID:         uuid.New().String(),
			Title:      "Wall",
			ImageURL:   "https://res.cloudinary.com/test/image/upload/v1/wallpapers/w.jpg",
			PublicID:   "wallpapers/w",
			Visibility: i%2 == 0,
		}
		if err := repo.Create(ctx, w); err != nil {
			t.Fatalf("Create() вернул ошибку: %v", err)
		}
	}

	total, err := repo.Count(ctx, false)
	if err != nil {
		t.Fatalf("Count() вернул ошибку: %v", err)
	}
	if total != 5 {
		t.Errorf("Count(false) = %d, ожидается 5", total)
	}

	visible, err := repo.Count(ctx, true)
	if err != nil {
		t.Fatalf("Count(true) вернул ошибку: %v", err)
	}
	if visible != 3 {
		t.Errorf("Count(true) = %d, ожидается 3", visible)
	}

	page, err := repo.List(ctx, false, 2, 2)
	if err != nil {
		t.Fatalf("List() вернул ошибку: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("List(limit=2, offset=2) вернул %d записей, ожидается 2", len(page))
	}

	onlyVisible, err := repo.List(ctx, true, 10, 0)
	if err != nil {
		t.Fatalf("List(visibleOnly) вернул ошибку: %v", err)
	}
	for _, w := range onlyVisible {
		if !w.Visibility {
			t.Errorf("List(visibleOnly) вернул скрытую запись %s", w.ID)
		}
	}
}
