// Пакет cdn — HTTP-клиент медиа-CDN (Cloudinary-совместимый API).
// Операции: Upload (POST /v1_1/{cloud}/image/upload, multipart),
// Destroy (POST /v1_1/{cloud}/image/destroy), DeliveryURL (URL доставки
// с трансформациями). Запросы подписываются SHA-1 подписью API.
package cdn

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"
)

// UploadResult — ответ CDN на загрузку изображения.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int64  `json:"bytes"`
	Format    string `json:"format"`
}

// destroyResult — ответ CDN на удаление ресурса.
type destroyResult struct {
	Result string `json:"result"`
}

// Transform — параметры трансформации для URL доставки.
type Transform struct {
	Width   int    // w_N, 0 — без масштабирования
	Crop    string // c_scale и т.п., используется вместе с Width
	Quality string // q_auto, q_50; пустая строка — оригинальное качество
	Format  string // f_auto; пустая строка — оригинальный формат
}

// Client — клиент медиа-CDN.
type Client struct {
	httpClient      *http.Client
	cloudName       string
	apiKey          string
	apiSecret       string
	uploadFolder    string
	apiBaseURL      string
	deliveryBaseURL string
	logger          *slog.Logger
	now             func() time.Time
}

// New создаёт CDN-клиент.
// apiBaseURL и deliveryBaseURL переопределяются в конфигурации
// (для тестов и self-hosted совместимых инсталляций).
func New(cloudName, apiKey, apiSecret, uploadFolder, apiBaseURL, deliveryBaseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		cloudName:       cloudName,
		apiKey:          apiKey,
		apiSecret:       apiSecret,
		uploadFolder:    uploadFolder,
		apiBaseURL:      strings.TrimRight(apiBaseURL, "/"),
		deliveryBaseURL: strings.TrimRight(deliveryBaseURL, "/"),
		logger:          logger.With(slog.String("component", "cdn_client")),
		now:             time.Now,
	}
}

// signature вычисляет SHA-1 подпись запроса: параметры сортируются по ключу,
// сериализуются как k=v&k=v, к строке добавляется API secret.
func (c *Client) signature(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

// Upload загружает изображение на CDN.
// POST /v1_1/{cloud}/image/upload — multipart с подписанными параметрами.
func (c *Client) Upload(ctx context.Context, filename string, file io.Reader) (*UploadResult, error) {
	timestamp := fmt.Sprintf("%d", c.now().Unix())
	params := map[string]string{
		"folder":    c.uploadFolder,
		"timestamp": timestamp,
	}
	sig := c.signature(params)

	body := &strings.Builder{}
	writer := multipart.NewWriter(body)

	for k, v := range params {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("формирование multipart: %w", err)
		}
	}
	if err := writer.WriteField("api_key", c.apiKey); err != nil {
		return nil, fmt.Errorf("формирование multipart: %w", err)
	}
	if err := writer.WriteField("signature", sig); err != nil {
		return nil, fmt.Errorf("формирование multipart: %w", err)
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("формирование multipart: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("чтение файла изображения: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("формирование multipart: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1_1/%s/image/upload", c.apiBaseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(body.String()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса Upload: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос Upload к CDN: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("CDN Upload вернул статус %d: %s", resp.StatusCode, string(respBody))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("декодирование ответа Upload: %w", err)
	}

	c.logger.Debug("Изображение загружено на CDN",
		slog.String("public_id", result.PublicID),
		slog.Int64("bytes", result.Bytes),
	)
	return &result, nil
}

// Destroy удаляет ресурс с CDN по public_id.
// POST /v1_1/{cloud}/image/destroy — подписанный form-urlencoded запрос.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	timestamp := fmt.Sprintf("%d", c.now().Unix())
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}
	sig := c.signature(params)

	form := fmt.Sprintf("public_id=%s&timestamp=%s&api_key=%s&signature=%s",
		publicID, timestamp, c.apiKey, sig)

	reqURL := fmt.Sprintf("%s/v1_1/%s/image/destroy", c.apiBaseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form))
	if err != nil {
		return fmt.Errorf("создание запроса Destroy: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос Destroy к CDN: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("CDN Destroy вернул статус %d: %s", resp.StatusCode, string(respBody))
	}

	var result destroyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("декодирование ответа Destroy: %w", err)
	}
	// "not found" не считаем ошибкой: ресурс уже отсутствует.
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("CDN Destroy: неожиданный результат %q", result.Result)
	}

	c.logger.Debug("Ресурс удалён с CDN", slog.String("public_id", publicID))
	return nil
}

// DeliveryURL строит URL доставки изображения с трансформациями.
// {delivery}/{cloud}/image/upload/{transform}/{public_id}
func (c *Client) DeliveryURL(publicID string, t Transform) string {
	var segments []string
	if t.Width > 0 {
		crop := t.Crop
		if crop == "" {
			crop = "scale"
		}
		segments = append(segments, fmt.Sprintf("w_%d,c_%s", t.Width, crop))
	}
	if t.Quality != "" {
		segments = append(segments, "q_"+t.Quality)
	}
	if t.Format != "" {
		segments = append(segments, "f_"+t.Format)
	}

	base := fmt.Sprintf("%s/%s/image/upload", c.deliveryBaseURL, c.cloudName)
	if len(segments) == 0 {
		return base + "/" + publicID
	}
	return base + "/" + strings.Join(segments, "/") + "/" + publicID
}

// BaseURL возвращает базовый URL API (для health-чеков).
func (c *Client) BaseURL() string {
	return c.apiBaseURL
}
