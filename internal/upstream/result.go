package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Result は上流からの応答を型付きで表す。
// ハンドラーはStatusCodeで分岐し、必要なフィールドだけをデコードする。
type Result struct {
	StatusCode int
	RawBody    []byte
}

// FieldError は上流のバリデーションエラー詳細の1項目。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// envelope は上流応答の共通外形。必要なフィールドだけを拾う。
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details []FieldError    `json:"details"`
	Total   *int            `json:"total"`
}

// OK はステータスが2xxかを判定する。
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode はボディ全体をvにデコードする。
func (r *Result) Decode(v any) error {
	if len(r.RawBody) == 0 {
		return fmt.Errorf("upstream: empty response body")
	}
	if err := json.Unmarshal(r.RawBody, v); err != nil {
		return fmt.Errorf("upstream: unmarshal response: %w", err)
	}
	return nil
}

// DecodeData はボディの {data: ...} フィールドをvにデコードする。
// dataが存在しない場合はエラーを返す。
func (r *Result) DecodeData(v any) error {
	var env envelope
	if err := r.Decode(&env); err != nil {
		return err
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("upstream: response has no data field")
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("upstream: unmarshal data field: %w", err)
	}
	return nil
}

// Success はボディの {success: bool} を返す。フィールドがない場合はfalse。
func (r *Result) Success() bool {
	var env envelope
	if err := r.Decode(&env); err != nil {
		return false
	}
	return env.Success != nil && *env.Success
}

// Message はボディの {message} を返す。取得できない場合はfallbackを返す。
func (r *Result) Message(fallback string) string {
	var env envelope
	if err := r.Decode(&env); err != nil || env.Message == "" {
		return fallback
	}
	return env.Message
}

// FieldErrors はボディの {details: [{field, message}]} を返す。
// 存在しない・パースできない場合はnil。
func (r *Result) FieldErrors() []FieldError {
	var env envelope
	if err := r.Decode(&env); err != nil {
		return nil
	}
	return env.Details
}

// Total はボディの {total} を返す。存在しない場合は0。
func (r *Result) Total() int {
	var env envelope
	if err := r.Decode(&env); err != nil || env.Total == nil {
		return 0
	}
	return *env.Total
}

// NewResult はテスト用にResultを構築するヘルパー。
func NewResult(statusCode int, body []byte) *Result {
	return &Result{StatusCode: statusCode, RawBody: body}
}

// StatusText はステータスコードの標準テキストを返す。ログ用。
func (r *Result) StatusText() string {
	return http.StatusText(r.StatusCode)
}
