package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost — стоимость хэширования bcrypt.
const bcryptCost = 10

// HashPassword возвращает bcrypt-хэш пароля.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("хэширование пароля: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword сравнивает пароль с bcrypt-хэшем.
// Сравнение внутри bcrypt выполняется за константное время.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
