// Пакет model — доменные модели Wallstore.
package model

import "time"

// Роли административных аккаунтов.
const (
	// RoleAdmin — единственная роль в системе на данный момент.
	RoleAdmin = "admin"
)

// AdminAccount — административный аккаунт.
// Хранится в таблице admin_accounts.
type AdminAccount struct {
	// ID — UUID аккаунта
	ID string
	// Name — отображаемое имя администратора
	Name string
	// Email — адрес электронной почты (уникальный)
	Email string
	// PasswordHash — bcrypt-хэш пароля
	PasswordHash string
	// Role — роль аккаунта (admin)
	Role string
	// CreatedAt — время создания аккаунта
	CreatedAt time.Time
}
