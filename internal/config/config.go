// Пакет config — загрузка и валидация конфигурации Wallstore
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Wallstore.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Токены и сессии ---

	// Секрет подписи JWT (HS256)
	JWTSecret string
	// Время жизни токена
	JWTTTL time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// TTL неактивной сессии (0 — reaper отключён, сессия живёт до logout)
	SessionIdleTTL time.Duration
	// Интервал запуска reaper неактивных сессий
	SessionReapInterval time.Duration

	// --- CDN (Cloudinary-совместимый) ---

	// Имя облака CDN
	CDNCloudName string
	// API key CDN
	CDNAPIKey string
	// API secret CDN (подпись запросов upload/destroy)
	CDNAPISecret string
	// Папка для загружаемых изображений
	CDNUploadFolder string
	// Базовый URL API загрузки (по умолчанию https://api.cloudinary.com)
	CDNAPIBaseURL string
	// Базовый URL выдачи изображений (по умолчанию https://res.cloudinary.com)
	CDNDeliveryBaseURL string

	// --- Мониторинг зависимостей ---

	// Имя группы topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// WS_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("WS_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("WS_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("WS_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// WS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("WS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("WS_LOG_LEVEL: %w", err)
	}

	// WS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("WS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("WS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// WS_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("WS_DB_HOST")
	if err != nil {
		return nil, err
	}

	// WS_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("WS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("WS_DB_PORT: %w", err)
	}

	// WS_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("WS_DB_NAME")
	if err != nil {
		return nil, err
	}

	// WS_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("WS_DB_USER")
	if err != nil {
		return nil, err
	}

	// WS_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("WS_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// WS_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("WS_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("WS_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Токены и сессии ---

	// WS_JWT_SECRET — обязательный, минимум 32 символа
	cfg.JWTSecret, err = getEnvRequired("WS_JWT_SECRET")
	if err != nil {
		return nil, err
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("WS_JWT_SECRET: длина %d меньше минимальной 32", len(cfg.JWTSecret))
	}

	// WS_JWT_TTL — время жизни токена (по умолчанию 1h)
	cfg.JWTTTL, err = getEnvDuration("WS_JWT_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("WS_JWT_TTL: %w", err)
	}
	if cfg.JWTTTL < time.Minute {
		return nil, fmt.Errorf("WS_JWT_TTL: значение %s меньше минимального 1m", cfg.JWTTTL)
	}

	// WS_JWT_LEEWAY — допустимое отклонение времени (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("WS_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WS_JWT_LEEWAY: %w", err)
	}

	// WS_SESSION_IDLE_TTL — TTL неактивной сессии (по умолчанию 0 — отключено).
	// При 0 сессия живёт до явного logout: строгая single-device политика.
	cfg.SessionIdleTTL, err = getEnvDuration("WS_SESSION_IDLE_TTL", 0)
	if err != nil {
		return nil, fmt.Errorf("WS_SESSION_IDLE_TTL: %w", err)
	}

	// WS_SESSION_REAP_INTERVAL — интервал reaper (по умолчанию 5m)
	cfg.SessionReapInterval, err = getEnvDuration("WS_SESSION_REAP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("WS_SESSION_REAP_INTERVAL: %w", err)
	}
	if cfg.SessionIdleTTL > 0 && cfg.SessionReapInterval < time.Second {
		return nil, fmt.Errorf("WS_SESSION_REAP_INTERVAL: значение %s меньше минимального 1s", cfg.SessionReapInterval)
	}

	// --- CDN ---

	// WS_CDN_CLOUD_NAME — обязательный
	cfg.CDNCloudName, err = getEnvRequired("WS_CDN_CLOUD_NAME")
	if err != nil {
		return nil, err
	}

	// WS_CDN_API_KEY — обязательный
	cfg.CDNAPIKey, err = getEnvRequired("WS_CDN_API_KEY")
	if err != nil {
		return nil, err
	}

	// WS_CDN_API_SECRET — обязательный
	cfg.CDNAPISecret, err = getEnvRequired("WS_CDN_API_SECRET")
	if err != nil {
		return nil, err
	}

	// WS_CDN_UPLOAD_FOLDER — папка загрузки (по умолчанию wallpapers)
	cfg.CDNUploadFolder = getEnvDefault("WS_CDN_UPLOAD_FOLDER", "wallpapers")

	// WS_CDN_API_BASE_URL — базовый URL API (по умолчанию Cloudinary)
	cfg.CDNAPIBaseURL = strings.TrimRight(
		getEnvDefault("WS_CDN_API_BASE_URL", "https://api.cloudinary.com"), "/")

	// WS_CDN_DELIVERY_BASE_URL — базовый URL выдачи (по умолчанию Cloudinary)
	cfg.CDNDeliveryBaseURL = strings.TrimRight(
		getEnvDefault("WS_CDN_DELIVERY_BASE_URL", "https://res.cloudinary.com"), "/")

	// --- Мониторинг зависимостей ---

	// WS_DEPHEALTH_GROUP — имя группы (по умолчанию wallstore)
	cfg.DephealthGroup = getEnvDefault("WS_DEPHEALTH_GROUP", "wallstore")

	// WS_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("WS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// WS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("WS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WS_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL
// (для topologymetrics и golang-migrate).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
