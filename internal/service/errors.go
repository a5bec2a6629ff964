// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrInvalidCredentials — неверный email или пароль.
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	// ErrSessionConflict — у администратора уже есть живая сессия.
	ErrSessionConflict = errors.New("уже существует активная сессия на другом устройстве")
	// ErrInvalidToken — токен не прошёл проверку.
	ErrInvalidToken = errors.New("некорректный токен")
	// ErrForbidden — операция над недоступным ресурсом.
	ErrForbidden = errors.New("доступ к ресурсу запрещён")
	// ErrCDNUnavailable — медиа-CDN недоступен.
	ErrCDNUnavailable = errors.New("медиа-CDN недоступен")
)
