// handler.go — основной обработчик API Wallstore.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bigkaa/wallstore/internal/service"
)

// APIHandler — основной обработчик API Wallstore.
type APIHandler struct {
	health     *HealthHandler
	auth       *service.AuthService
	wallpapers *service.WallpaperService
	logger     *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	authSvc *service.AuthService,
	wallpapers *service.WallpaperService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:     health,
		auth:       authSvc,
		wallpapers: wallpapers,
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- DTO ---

// wallpaperDTO — запись каталога в JSON-ответах.
type wallpaperDTO struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category,omitempty"`
	Tags          []string `json:"tags"`
	ImageURL      string   `json:"imageUrl"`
	CompressedURL string   `json:"compressedUrl"`
	Visibility    bool     `json:"visibility"`
	Downloads     int64    `json:"downloads"`
	Likes         int64    `json:"likes"`
	Width         int      `json:"width,omitempty"`
	Height        int      `json:"height,omitempty"`
	SizeBytes     int64    `json:"sizeBytes,omitempty"`
	UploadedBy    string   `json:"uploadedBy,omitempty"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

// toWallpaperDTO конвертирует WallpaperView в DTO.
func toWallpaperDTO(v *service.WallpaperView) *wallpaperDTO {
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}
	return &wallpaperDTO{
		ID:            v.ID,
		Title:         v.Title,
		Description:   v.Description,
		Category:      v.Category,
		Tags:          tags,
		ImageURL:      v.ImageURL,
		CompressedURL: v.CompressedURL,
		Visibility:    v.Visibility,
		Downloads:     v.Downloads,
		Likes:         v.Likes,
		Width:         v.Width,
		Height:        v.Height,
		SizeBytes:     v.SizeBytes,
		UploadedBy:    v.UploadedBy,
		CreatedAt:     v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// toWallpaperDTOs конвертирует страницу каталога в список DTO.
// Пустая страница сериализуется как [], не null.
func toWallpaperDTOs(items []*service.WallpaperView) []*wallpaperDTO {
	dtos := make([]*wallpaperDTO, 0, len(items))
	for _, v := range items {
		dtos = append(dtos, toWallpaperDTO(v))
	}
	return dtos
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// pageParams извлекает параметры пагинации из query string.
// Отсутствующие и некорректные значения нормализуются в сервисном слое.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}
