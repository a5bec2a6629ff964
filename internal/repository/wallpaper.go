package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/wallstore/internal/domain/model"
)

// WallpaperRepository — интерфейс CRUD для таблицы wallpapers.
type WallpaperRepository interface {
	// Create создаёт запись каталога.
	Create(ctx context.Context, w *model.Wallpaper) error
	// GetByID возвращает запись по UUID.
	GetByID(ctx context.Context, id string) (*model.Wallpaper, error)
	// List возвращает страницу каталога, новые записи первыми.
	// visibleOnly=true ограничивает выборку видимыми записями.
	List(ctx context.Context, visibleOnly bool, limit, offset int) ([]*model.Wallpaper, error)
	// Count возвращает количество записей с учётом фильтра видимости.
	Count(ctx context.Context, visibleOnly bool) (int, error)
	// Update обновляет метаданные записи (title, description, category, tags).
	Update(ctx context.Context, w *model.Wallpaper) error
	// Delete удаляет запись.
	Delete(ctx context.Context, id string) error
	// ToggleVisibility атомарно инвертирует флаг видимости
	// и возвращает обновлённую запись.
	ToggleVisibility(ctx context.Context, id string) (*model.Wallpaper, error)
	// IncrementDownloads атомарно увеличивает счётчик скачиваний видимой
	// записи. Возвращает ErrNotFound, если записи нет или она скрыта.
	IncrementDownloads(ctx context.Context, id string) (*model.Wallpaper, error)
	// IncrementLikes атомарно увеличивает счётчик лайков.
	IncrementLikes(ctx context.Context, id string) (*model.Wallpaper, error)
}

// Колонки wallpapers в порядке сканирования scanWallpaper.
const wallpaperColumns = `id, title, description, category, tags, image_url, public_id,
	visibility, downloads, likes, width, height, size_bytes, uploaded_by, created_at, updated_at`

// wallpaperRepo — реализация WallpaperRepository.
type wallpaperRepo struct {
	db DBTX
}

// NewWallpaperRepository создаёт репозиторий каталога обоев.
func NewWallpaperRepository(db DBTX) WallpaperRepository {
	return &wallpaperRepo{db: db}
}

// scanWallpaper сканирует строку результата в model.Wallpaper.
func scanWallpaper(row pgx.Row) (*model.Wallpaper, error) {
	w := &model.Wallpaper{}
	err := row.Scan(
		&w.ID, &w.Title, &w.Description, &w.Category, &w.Tags, &w.ImageURL, &w.PublicID,
		&w.Visibility, &w.Downloads, &w.Likes, &w.Width, &w.Height, &w.SizeBytes,
		&w.UploadedBy, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования записи каталога: %w", err)
	}
	return w, nil
}

func (r *wallpaperRepo) Create(ctx context.Context, w *model.Wallpaper) error {
	query := `
		INSERT INTO wallpapers (id, title, description, category, tags, image_url,
			public_id, visibility, width, height, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING downloads, likes, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		w.ID, w.Title, w.Description, w.Category, w.Tags, w.ImageURL,
		w.PublicID, w.Visibility, w.Width, w.Height, w.SizeBytes, w.UploadedBy,
	).Scan(&w.Downloads, &w.Likes, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: запись с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания записи каталога: %w", err)
	}
	return nil
}

func (r *wallpaperRepo) GetByID(ctx context.Context, id string) (*model.Wallpaper, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallpapers WHERE id = $1`, wallpaperColumns)
	return scanWallpaper(r.db.QueryRow(ctx, query, id))
}

func (r *wallpaperRepo) List(ctx context.Context, visibleOnly bool, limit, offset int) ([]*model.Wallpaper, error) {
	where := ""
	if visibleOnly {
		where = "WHERE visibility = TRUE"
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM wallpapers
		%s
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, wallpaperColumns, where)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка каталога: %w", err)
	}
	defer rows.Close()

	var result []*model.Wallpaper
	for rows.Next() {
		w, err := scanWallpaper(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (r *wallpaperRepo) Count(ctx context.Context, visibleOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM wallpapers`
	if visibleOnly {
		query += ` WHERE visibility = TRUE`
	}

	var count int
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей каталога: %w", err)
	}
	return count, nil
}

func (r *wallpaperRepo) Update(ctx context.Context, w *model.Wallpaper) error {
	query := `
		UPDATE wallpapers
		SET title = $2, description = $3, category = $4, tags = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		w.ID, w.Title, w.Description, w.Category, w.Tags,
	).Scan(&w.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления записи каталога: %w", err)
	}
	return nil
}

func (r *wallpaperRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM wallpapers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи каталога: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *wallpaperRepo) ToggleVisibility(ctx context.Context, id string) (*model.Wallpaper, error) {
	query := fmt.Sprintf(`
		UPDATE wallpapers
		SET visibility = NOT visibility, updated_at = now()
		WHERE id = $1
		RETURNING %s`, wallpaperColumns)

	return scanWallpaper(r.db.QueryRow(ctx, query, id))
}

func (r *wallpaperRepo) IncrementDownloads(ctx context.Context, id string) (*model.Wallpaper, error) {
	// Проверка видимости и инкремент — одним UPDATE, без read-then-write.
	query := fmt.Sprintf(`
		UPDATE wallpapers
		SET downloads = downloads + 1
		WHERE id = $1 AND visibility = TRUE
		RETURNING %s`, wallpaperColumns)

	return scanWallpaper(r.db.QueryRow(ctx, query, id))
}

func (r *wallpaperRepo) IncrementLikes(ctx context.Context, id string) (*model.Wallpaper, error) {
	query := fmt.Sprintf(`
		UPDATE wallpapers
		SET likes = likes + 1
		WHERE id = $1
		RETURNING %s`, wallpaperColumns)

	return scanWallpaper(r.db.QueryRow(ctx, query, id))
}
