// public.go — публичные обработчики каталога (без аутентификации).
// GET /user/wallpapers, GET /user/wallpaper/{id}, GET /user/wallpaper/{id}/like.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/wallstore/internal/api/errors"
	"github.com/bigkaa/wallstore/internal/service"
)

// ListPublicWallpapers — GET /user/wallpapers?page&limit.
// Только видимые записи, сжатая выдача.
// 200 {wallpapers, total, page, totalPage}.
func (h *APIHandler) ListPublicWallpapers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	result, err := h.wallpapers.ListPublic(r.Context(), page, limit)
	if err != nil {
		h.logger.Error("Ошибка получения публичного каталога", slog.String("error", err.Error()))
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

// DownloadWallpaper — GET /user/wallpaper/{id}.
// Учитывает скачивание и отдаёт URL оригинала.
// 200 {imageUrl, downloads} | 403 запись скрыта | 404.
func (h *APIHandler) DownloadWallpaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	wallpaper, err := h.wallpapers.Download(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Запись каталога не найдена")
		case errors.Is(err, service.ErrForbidden):
			apierrors.Forbidden(w, "Запись недоступна")
		default:
			h.logger.Error("Ошибка учёта скачивания", slog.String("error", err.Error()))
			apierrors.InternalError(w, "Внутренняя ошибка сервера")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"imageUrl":  wallpaper.ImageURL,
		"downloads": wallpaper.Downloads,
	})
}

// LikeWallpaper — GET /user/wallpaper/{id}/like.
// Анонимный лайк, без дедупликации.
// 200 {likes} | 404.
func (h *APIHandler) LikeWallpaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	wallpaper, err := h.wallpapers.Like(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Запись каталога не найдена")
			return
		}
		h.logger.Error("Ошибка учёта лайка", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"likes": wallpaper.Likes})
}
