// wallpaper.go — сервис каталога обоев.
//
// Бинарное содержимое живёт на внешнем CDN, в PostgreSQL — только метаданные.
// Загрузка: сначала файл уходит на CDN, затем создаётся запись каталога;
// при ошибке записи загруженный ресурс удаляется best-effort, чтобы не
// копить сирот. Выдача строит URL с трансформациями: административная —
// w_1000, публичная — w_600/q_50.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/wallstore/internal/cdn"
	"github.com/bigkaa/wallstore/internal/domain/model"
	"github.com/bigkaa/wallstore/internal/repository"
)

// Prometheus-метрики каталога.
var (
	cdnUploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ws_cdn_upload_duration_seconds",
		Help:    "Длительность загрузки изображения на CDN",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s … ~51s
	})

	catalogOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_catalog_operations_total",
		Help: "Количество операций над каталогом обоев",
	}, []string{"operation"}) // operation: upload, update, delete, toggle, download, like
)

// Трансформации выдачи изображений.
var (
	// adminTransform — сжатая выдача для административного списка.
	adminTransform = cdn.Transform{Width: 1000, Quality: "auto", Format: "auto"}
	// publicTransform — агрессивно сжатая публичная выдача.
	publicTransform = cdn.Transform{Width: 600, Quality: "50", Format: "auto"}
)

// Пагинация публичной и административной выдачи.
const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// WallpaperView — запись каталога с готовыми URL выдачи.
type WallpaperView struct {
	*model.Wallpaper
	// CompressedURL — URL сжатой версии изображения.
	CompressedURL string
}

// WallpaperPage — страница каталога.
type WallpaperPage struct {
	Items     []*WallpaperView
	Total     int
	Page      int
	TotalPage int
}

// UploadInput — параметры загрузки нового изображения.
type UploadInput struct {
	Title       string
	Description string
	Category    string
	Tags        []string
	Filename    string
	File        io.Reader
	UploadedBy  string
}

// UpdateInput — изменяемые метаданные записи.
type UpdateInput struct {
	Title       string
	Description string
	Category    string
	Tags        []string
}

// WallpaperService — бизнес-логика каталога обоев.
type WallpaperService struct {
	repo   repository.WallpaperRepository
	cdn    *cdn.Client
	logger *slog.Logger
}

// NewWallpaperService создаёт сервис каталога.
func NewWallpaperService(repo repository.WallpaperRepository, cdnClient *cdn.Client, logger *slog.Logger) *WallpaperService {
	return &WallpaperService{
		repo:   repo,
		cdn:    cdnClient,
		logger: logger.With(slog.String("component", "wallpaper_service")),
	}
}

// view оборачивает запись в WallpaperView с URL трансформации.
func (s *WallpaperService) view(w *model.Wallpaper, t cdn.Transform) *WallpaperView {
	return &WallpaperView{
		Wallpaper:     w,
		CompressedURL: s.cdn.DeliveryURL(w.PublicID, t),
	}
}

// normalizePaging приводит параметры пагинации к допустимым значениям.
func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// totalPages вычисляет количество страниц (ceil).
func totalPages(total, limit int) int {
	if total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Upload загружает изображение на CDN и создаёт запись каталога.
// Новая запись видима по умолчанию.
func (s *WallpaperService) Upload(ctx context.Context, in UploadInput) (*WallpaperView, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: название обязательно", ErrValidation)
	}
	if in.File == nil {
		return nil, fmt.Errorf("%w: файл изображения обязателен", ErrValidation)
	}

	timer := prometheus.NewTimer(cdnUploadDuration)
	result, err := s.cdn.Upload(ctx, in.Filename, in.File)
	timer.ObserveDuration()
	if err != nil {
		s.logger.Error("Ошибка загрузки на CDN", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrCDNUnavailable, err)
	}

	w := &model.Wallpaper{
		ID:          uuid.New().String(),
		Title:       title,
		Description: in.Description,
		Category:    in.Category,
		Tags:        in.Tags,
		ImageURL:    result.SecureURL,
		PublicID:    result.PublicID,
		Visibility:  true,
		Width:       result.Width,
		Height:      result.Height,
		SizeBytes:   result.Bytes,
		UploadedBy:  in.UploadedBy,
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}

	if err := s.repo.Create(ctx, w); err != nil {
		// Запись не создалась — убираем загруженный ресурс, чтобы не копить сирот.
		if destroyErr := s.cdn.Destroy(ctx, result.PublicID); destroyErr != nil {
			s.logger.Warn("Не удалось удалить осиротевший ресурс CDN",
				slog.String("public_id", result.PublicID),
				slog.String("error", destroyErr.Error()),
			)
		}
		return nil, fmt.Errorf("создание записи каталога: %w", err)
	}

	catalogOperationsTotal.WithLabelValues("upload").Inc()
	s.logger.Info("Изображение добавлено в каталог",
		slog.String("wallpaper_id", w.ID),
		slog.String("public_id", w.PublicID),
		slog.String("uploaded_by", w.UploadedBy),
	)
	return s.view(w, adminTransform), nil
}

// List возвращает страницу каталога для административной выдачи
// (включая скрытые записи), новые записи первыми.
func (s *WallpaperService) List(ctx context.Context, page, limit int) (*WallpaperPage, error) {
	return s.list(ctx, false, adminTransform, page, limit)
}

// ListPublic возвращает страницу публичной выдачи: только видимые записи.
func (s *WallpaperService) ListPublic(ctx context.Context, page, limit int) (*WallpaperPage, error) {
	return s.list(ctx, true, publicTransform, page, limit)
}

func (s *WallpaperService) list(ctx context.Context, visibleOnly bool, t cdn.Transform, page, limit int) (*WallpaperPage, error) {
	page, limit = normalizePaging(page, limit)
	offset := (page - 1) * limit

	total, err := s.repo.Count(ctx, visibleOnly)
	if err != nil {
		return nil, fmt.Errorf("подсчёт записей каталога: %w", err)
	}

	items, err := s.repo.List(ctx, visibleOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение страницы каталога: %w", err)
	}

	views := make([]*WallpaperView, 0, len(items))
	for _, w := range items {
		views = append(views, s.view(w, t))
	}

	return &WallpaperPage{
		Items:     views,
		Total:     total,
		Page:      page,
		TotalPage: totalPages(total, limit),
	}, nil
}

// Get возвращает запись каталога для административной выдачи.
func (s *WallpaperService) Get(ctx context.Context, id string) (*WallpaperView, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение записи каталога: %w", err)
	}
	return s.view(w, adminTransform), nil
}

// GetPublic возвращает видимую запись для публичной выдачи.
// Скрытая запись недоступна — ErrForbidden.
func (s *WallpaperService) GetPublic(ctx context.Context, id string) (*WallpaperView, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение записи каталога: %w", err)
	}
	if !w.Visibility {
		return nil, ErrForbidden
	}
	return s.view(w, publicTransform), nil
}

// Update обновляет метаданные записи (название, описание, категория, теги).
// Счётчики и указатели на CDN этим путём не меняются.
func (s *WallpaperService) Update(ctx context.Context, id string, in UpdateInput) (*WallpaperView, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение записи каталога: %w", err)
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		w.Title = title
	}
	if in.Description != "" {
		w.Description = in.Description
	}
	if in.Category != "" {
		w.Category = in.Category
	}
	if in.Tags != nil {
		w.Tags = in.Tags
	}

	if err := s.repo.Update(ctx, w); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление записи каталога: %w", err)
	}

	catalogOperationsTotal.WithLabelValues("update").Inc()
	s.logger.Info("Запись каталога обновлена", slog.String("wallpaper_id", id))
	return s.view(w, adminTransform), nil
}

// Delete удаляет запись каталога и ресурс на CDN.
// Запись удаляется первой; ошибка удаления с CDN не откатывает операцию —
// сироты на CDN предпочтительнее битых записей каталога.
func (s *WallpaperService) Delete(ctx context.Context, id string) error {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("получение записи каталога: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление записи каталога: %w", err)
	}

	if err := s.cdn.Destroy(ctx, w.PublicID); err != nil {
		s.logger.Warn("Не удалось удалить ресурс с CDN",
			slog.String("wallpaper_id", id),
			slog.String("public_id", w.PublicID),
			slog.String("error", err.Error()),
		)
	}

	catalogOperationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info("Запись каталога удалена", slog.String("wallpaper_id", id))
	return nil
}

// ToggleVisibility атомарно инвертирует флаг видимости.
func (s *WallpaperService) ToggleVisibility(ctx context.Context, id string) (*WallpaperView, error) {
	w, err := s.repo.ToggleVisibility(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("переключение видимости: %w", err)
	}

	catalogOperationsTotal.WithLabelValues("toggle").Inc()
	s.logger.Info("Видимость записи переключена",
		slog.String("wallpaper_id", id),
		slog.Bool("visibility", w.Visibility),
	)
	return s.view(w, adminTransform), nil
}

// Download инкрементирует счётчик скачиваний видимой записи и возвращает
// URL оригинала. Скрытая запись — ErrForbidden, отсутствующая — ErrNotFound.
func (s *WallpaperService) Download(ctx context.Context, id string) (*model.Wallpaper, error) {
	w, err := s.repo.IncrementDownloads(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Инкремент проходит только по видимым записям: различаем
			// «нет записи» и «запись скрыта» отдельным чтением.
			if _, getErr := s.repo.GetByID(ctx, id); getErr == nil {
				return nil, ErrForbidden
			}
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("учёт скачивания: %w", err)
	}

	catalogOperationsTotal.WithLabelValues("download").Inc()
	return w, nil
}

// Like инкрементирует счётчик лайков. Анонимная операция, без дедупликации.
func (s *WallpaperService) Like(ctx context.Context, id string) (*model.Wallpaper, error) {
	w, err := s.repo.IncrementLikes(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("учёт лайка: %w", err)
	}

	catalogOperationsTotal.WithLabelValues("like").Inc()
	return w, nil
}
