package model

import "time"

// Wallpaper — запись каталога обоев.
// Хранится в таблице wallpapers; бинарное содержимое живёт на внешнем CDN,
// здесь только метаданные и указатели (ImageURL, PublicID).
type Wallpaper struct {
	// ID — UUID записи
	ID string
	// Title — название
	Title string
	// Description — описание
	Description string
	// Category — категория (свободная строка)
	Category string
	// Tags — теги (упорядоченный список, дубликаты допустимы)
	Tags []string
	// ImageURL — полный URL оригинала на CDN
	ImageURL string
	// PublicID — идентификатор ресурса на CDN (для трансформаций и удаления)
	PublicID string
	// Visibility — виден ли элемент в публичной выдаче
	Visibility bool
	// Downloads — счётчик скачиваний
	Downloads int64
	// Likes — счётчик лайков
	Likes int64
	// Width, Height — разрешение изображения в пикселях
	Width  int
	Height int
	// SizeBytes — размер оригинала в байтах
	SizeBytes int64
	// UploadedBy — email администратора, загрузившего файл
	UploadedBy string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
