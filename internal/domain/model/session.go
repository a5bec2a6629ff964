package model

import "time"

// SessionRecord — запись живой сессии администратора.
// Хранится в таблице active_sessions; admin_id является первичным ключом,
// поэтому на одного администратора не может существовать больше одной записи.
type SessionRecord struct {
	// AdminID — UUID владельца сессии
	AdminID string
	// TokenID — идентификатор токена (jti), ключ отзыва
	TokenID string
	// DeviceFingerprint — непрозрачный отпечаток устройства клиента
	DeviceFingerprint string
	// IP — сетевой адрес, с которого выполнен вход
	IP string
	// LastSeen — время последнего аутентифицированного запроса
	LastSeen time.Time
	// CreatedAt — время создания сессии (успешного входа)
	CreatedAt time.Time
}
