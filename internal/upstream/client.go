// Package upstream は上流マイクロサービスへのHTTP呼び出しを提供する。
// 呼び出しごとに固定のタイムアウトを適用し、リトライは行わない。
// 非2xx応答は構造化データ（Result）として返し、トランスポート障害のみを
// ErrUnavailableへ変換する。生のトランスポート例外を外に漏らさないことが
// このパッケージの責務である。
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout は呼び出しタイムアウトの既定値。
	DefaultTimeout = 10 * time.Second

	// maxResponseSize はレスポンスボディの読み取り上限（1MB）。
	maxResponseSize = 1 << 20
)

// ErrUnavailable は上流サービスへ到達できなかったことを表す。
// 接続エラーとタイムアウトの両方がこのエラーにラップされる。
var ErrUnavailable = errors.New("upstream service unavailable")

// Recorder は上流呼び出しのメトリクス記録インターフェース。
// metrics.Collectorがこれを満たす。
type Recorder interface {
	RecordUpstreamRequest(service string, statusCode int, outcome string, duration time.Duration)
}

// メトリクスのoutcomeラベル値。
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
)

// ClientConfig はClientの生成設定。
type ClientConfig struct {
	// Service はログとメトリクスで使う上流名（例: "user_service"）。
	Service string
	// BaseURL は上流のベースURL。末尾のスラッシュは除去される。
	BaseURL string
	// Timeout は呼び出しごとの既定タイムアウト。0以下の場合はDefaultTimeout。
	Timeout time.Duration
	// Metrics は呼び出し結果の記録先。nilの場合は記録しない。
	Metrics Recorder
	// Logger はnilの場合slog.Default()を使用する。
	Logger *slog.Logger
}

// Client は単一の上流サービスへのHTTPクライアント。
type Client struct {
	service    string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	metrics    Recorder
	logger     *slog.Logger
}

// NewClient はClientを生成する。
// タイムアウトはhttp.Clientではなく呼び出しごとのcontextで制御する。
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		service:    cfg.Service,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// Service は上流名を返す。
func (c *Client) Service() string {
	return c.service
}

// BaseURL は設定された上流のベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do は上流へJSONリクエストを送信する。
// timeoutが0以下の場合はClientの既定値を使用する。
// 戻り値のerrorはトランスポート障害（ErrUnavailableにラップ済み）のみで、
// 非2xxステータスはerrorではなくResultとして返す。
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("upstream: marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("upstream: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		c.record(0, OutcomeUnavailable, elapsed)
		c.logger.Error("upstream request failed",
			slog.String("service", c.service),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %s %s %s: %v", ErrUnavailable, c.service, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.record(resp.StatusCode, OutcomeUnavailable, elapsed)
		return nil, fmt.Errorf("%w: %s: read response body: %v", ErrUnavailable, c.service, err)
	}

	outcome := OutcomeSuccess
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = OutcomeError
		c.logger.Warn("upstream returned non-2xx status",
			slog.String("service", c.service),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
	}
	c.record(resp.StatusCode, outcome, elapsed)

	return &Result{StatusCode: resp.StatusCode, RawBody: raw}, nil
}

// Health は上流のヘルスエンドポイント（/health）を短いタイムアウトで叩く。
func (c *Client) Health(ctx context.Context, timeout time.Duration) (*Result, error) {
	return c.Do(ctx, http.MethodGet, "/health", nil, nil, timeout)
}

func (c *Client) record(statusCode int, outcome string, d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(c.service, statusCode, outcome, d)
	}
}
