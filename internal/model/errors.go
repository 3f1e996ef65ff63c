package model

import "fmt"

// APIError はBFFの統一エラーフォーマットを表す。
// エラー分類コードと、クライアントに返すHTTPステータスを保持する。
type APIError struct {
	Code    string // エラーコード
	Message string // 人間向けエラーメッセージ
	Status  int    // クライアントに返すHTTPステータス
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeUpstreamError      = "UPSTREAM_ERROR"
)

// NewInvalidInputError は入力検証エラーを生成する。
// 検証はすべて上流呼び出しの前にローカルで解決される。
func NewInvalidInputError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeInvalidInput,
		Message: message,
		Status:  400,
	}
}

// NewUnauthenticatedError はセッション未確立エラーを生成する。
func NewUnauthenticatedError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthenticated,
		Message: message,
		Status:  401,
	}
}

// NewUnauthorizedError は資格情報不一致エラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  401,
	}
}

// NewNotFoundError は対象未検出エラーを生成する。
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: message,
		Status:  404,
	}
}

// NewConflictError は重複登録エラーを生成する。
func NewConflictError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeConflict,
		Message: message,
		Status:  409,
	}
}

// NewServiceUnavailableError は上流サービスへの到達不能エラーを生成する。
// トランスポート障害とタイムアウトはすべてこのエラーに変換される。
func NewServiceUnavailableError(service string) *APIError {
	return &APIError{
		Code:    ErrCodeServiceUnavailable,
		Message: fmt.Sprintf("%s is currently unavailable. Please try again later.", service),
		Status:  503,
	}
}

// NewUpstreamError は上流が想定外のステータスを返した場合のエラーを生成する。
// 安全な範囲で上流のステータスコードをそのまま透過する。
func NewUpstreamError(status int, message string) *APIError {
	return &APIError{
		Code:    ErrCodeUpstreamError,
		Message: message,
		Status:  status,
	}
}
