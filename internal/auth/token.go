// Пакет auth — выпуск и проверка токенов доступа (HS256)
// и хэширование паролей администраторов.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Ошибки проверки токенов.
var (
	// ErrInvalidToken — токен не прошёл проверку подписи или структуры.
	ErrInvalidToken = errors.New("невалидный токен")
	// ErrTokenExpired — срок действия токена истёк.
	ErrTokenExpired = errors.New("срок действия токена истёк")
)

// Claims — полезная нагрузка токена Wallstore.
// Subject — UUID администратора, ID (jti) — идентификатор токена,
// по которому Session Registry находит и отзывает сессию.
type Claims struct {
	jwt.RegisteredClaims
	// Role — роль аккаунта (admin)
	Role string `json:"role"`
}

// TokenManager — выпуск и проверка подписанных токенов.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
}

// NewTokenManager создаёт TokenManager.
// secret — ключ подписи HS256, ttl — время жизни токена,
// leeway — допустимое отклонение времени при проверке.
func NewTokenManager(secret []byte, ttl, leeway time.Duration) *TokenManager {
	return &TokenManager{secret: secret, ttl: ttl, leeway: leeway}
}

// Mint выпускает подписанный токен для администратора.
// Возвращает строку токена и его идентификатор (jti).
func (m *TokenManager) Mint(adminID, role string) (token string, tokenID string, err error) {
	now := time.Now()
	tokenID = uuid.New().String()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", "", fmt.Errorf("подпись токена: %w", err)
	}
	return signed, tokenID, nil
}

// Verify проверяет подпись и срок действия токена.
// Возвращает claims или ErrTokenExpired / ErrInvalidToken.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, m.keyfunc,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: отсутствует sub или jti", ErrInvalidToken)
	}
	return claims, nil
}

// Decode проверяет подпись токена, игнорируя срок действия.
// Используется при logout: просроченный токен всё ещё должен
// удалять свою запись в Session Registry.
func (m *TokenManager) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, m.keyfunc,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: отсутствует sub или jti", ErrInvalidToken)
	}
	return claims, nil
}

// DecodeUnverified извлекает claims без проверки подписи.
// Используется только для best-effort очистки реестра при logout
// с токеном, не прошедшим проверку подписи: удаление в реестре
// ключуется парой (admin_id, token_id), поэтому поддельный токен
// не может снять чужую живую сессию.
func (m *TokenManager) DecodeUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: отсутствует sub или jti", ErrInvalidToken)
	}
	return claims, nil
}

// keyfunc возвращает ключ подписи для jwt.ParseWithClaims.
func (m *TokenManager) keyfunc(_ *jwt.Token) (any, error) {
	return m.secret, nil
}
