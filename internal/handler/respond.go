// Package handler はHTTPハンドラーを提供する。
//
// 各ハンドラーは入力形状の検証、セッションの参照、上流クライアントの呼び出し、
// 上流結果のフロントエンド向け契約への整形を担う。成功応答は必ず
// {success: true, ...}、失敗応答は {success: false, message} の外形を持つ。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pawpal/bff/internal/model"
)

// maxRequestBodySize はリクエストボディの最大サイズ（1MB）。
const maxRequestBodySize = 1 << 20

// decodeJSONBody はリクエストボディをJSONとしてデコードする。
// 空ボディは空オブジェクトとして扱う。
func decodeJSONBody(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// failureBody はAPIエラーレスポンスの統一フォーマット。
type failureBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIError は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func writeAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	writeJSON(w, apiErr.Status, failureBody{
		Success: false,
		Code:    apiErr.Code,
		Message: apiErr.Message,
	})
}

// writeFailure は指定ステータスで失敗レスポンスを書き込む。
// 上流ステータスを透過するパススルー失敗で使用する。
func writeFailure(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, failureBody{
		Success: false,
		Message: message,
	})
}

// writeInternalError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func writeInternalError(w http.ResponseWriter) {
	writeFailure(w, http.StatusInternalServerError, "Internal server error")
}
