// wallpapers.go — административные обработчики каталога обоев.
// POST /admin/upload, GET /admin/wallpapers, PUT/DELETE /admin/wallpaper/{id},
// PUT /admin/wallpaper/{id}/visibility. Все за Guard.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/wallstore/internal/api/errors"
	"github.com/bigkaa/wallstore/internal/api/middleware"
	"github.com/bigkaa/wallstore/internal/service"
)

// Лимит размера multipart-запроса загрузки (оригиналы обоев до ~50 МБ).
const maxUploadBytes = 64 << 20

// updateWallpaperRequest — тело запроса PUT /admin/wallpaper/{id}.
type updateWallpaperRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

// Upload — POST /admin/upload (multipart/form-data).
// Поля: image (файл), title, description, category, tags (через запятую).
// 201 {wallpaper} | 400 | 502 CDN недоступен.
func (h *APIHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		apierrors.ValidationError(w, "Некорректный multipart-запрос")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		apierrors.ValidationError(w, "Поле image с файлом изображения обязательно")
		return
	}
	defer file.Close()

	// Email загрузившего — для атрибуции записи каталога.
	uploadedBy := claims.AdminID
	if account, err := h.auth.Details(r.Context(), claims.AdminID); err == nil {
		uploadedBy = account.Email
	}

	var tags []string
	if raw := r.FormValue("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	view, err := h.wallpapers.Upload(r.Context(), service.UploadInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Tags:        tags,
		Filename:    header.Filename,
		File:        file,
		UploadedBy:  uploadedBy,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrCDNUnavailable):
			apierrors.CDNUnavailable(w, "Медиа-CDN недоступен, повторите попытку позже")
		default:
			h.logger.Error("Ошибка загрузки изображения", slog.String("error", err.Error()))
			apierrors.InternalError(w, "Внутренняя ошибка сервера")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"wallpaper": toWallpaperDTO(view)})
}

// ListWallpapers — GET /admin/wallpapers?page&limit.
// Административная выдача: включая скрытые записи.
// 200 {wallpapers, total, page, totalPage}.
func (h *APIHandler) ListWallpapers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	result, err := h.wallpapers.List(r.Context(), page, limit)
	if err != nil {
		h.logger.Error("Ошибка получения каталога", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"wallpapers": toWallpaperDTOs(result.Items),
		"total":      result.Total,
		"page":       result.Page,
		"totalPage":  result.TotalPage,
	})
}

// UpdateWallpaper — PUT /admin/wallpaper/{id}.
// 200 {updateWallpaper} | 400 | 404.
func (h *APIHandler) UpdateWallpaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateWallpaperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	view, err := h.wallpapers.Update(r.Context(), id, service.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Запись каталога не найдена")
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		default:
			h.logger.Error("Ошибка обновления записи", slog.String("error", err.Error()))
			apierrors.InternalError(w, "Внутренняя ошибка сервера")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updateWallpaper": toWallpaperDTO(view)})
}

// DeleteWallpaper — DELETE /admin/wallpaper/{id}.
// 200 {message} | 404.
func (h *APIHandler) DeleteWallpaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.wallpapers.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Запись каталога не найдена")
			return
		}
		h.logger.Error("Ошибка удаления записи", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Запись каталога удалена"})
}

// ToggleVisibility — PUT /admin/wallpaper/{id}/visibility.
// 200 {wallpaper} | 404.
func (h *APIHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.wallpapers.ToggleVisibility(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Запись каталога не найдена")
			return
		}
		h.logger.Error("Ошибка переключения видимости", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"wallpaper": toWallpaperDTO(view)})
}
