// readiness.go — проверка доступности медиа-CDN для readiness probe.
package cdn

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ReadinessChecker — проверка сетевой доступности API CDN.
// Cloudinary-совместимый API не публикует /health: GET корня с любым
// HTTP-статусом подтверждает, что хост отвечает.
type ReadinessChecker struct {
	baseURL string
	client  *http.Client
}

// NewReadinessChecker создаёт checker доступности CDN.
func NewReadinessChecker(baseURL string, timeout time.Duration) *ReadinessChecker {
	return &ReadinessChecker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// CheckReady проверяет доступность API CDN.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, c.baseURL, http.NoBody)
	if err != nil {
		return "fail", "ошибка создания запроса: " + err.Error()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("CDN недоступен: %v", err)
	}
	defer resp.Body.Close()

	// Сервер отвечает — API доступен; 4xx от корня допустим.
	if resp.StatusCode >= http.StatusInternalServerError {
		return "degraded", fmt.Sprintf("CDN вернул статус %d", resp.StatusCode)
	}
	return "ok", fmt.Sprintf("CDN доступен, статус %d", resp.StatusCode)
}
