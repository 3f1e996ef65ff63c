package handler

import "net/http"

// ServiceInfoHandler は接続先サービス情報のHTTPハンドラー。
// フロントエンドのデバッグ画面が参照する静的な構成記述を返す。
type ServiceInfoHandler struct {
	userServiceURL      string
	compositeServiceURL string
}

// NewServiceInfoHandler はServiceInfoHandlerを生成する。
func NewServiceInfoHandler(userServiceURL, compositeServiceURL string) *ServiceInfoHandler {
	return &ServiceInfoHandler{
		userServiceURL:      userServiceURL,
		compositeServiceURL: compositeServiceURL,
	}
}

// Get は設定済み上流サービスの接続情報を返す。
// GET /api/service-info
func (h *ServiceInfoHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"user_service": map[string]any{
			"url":          h.userServiceURL,
			"swagger_ui":   h.userServiceURL + "/api-docs",
			"swagger_json": h.userServiceURL + "/api-docs/swagger.json",
		},
		"composite_service": map[string]any{
			"url": h.compositeServiceURL,
		},
	})
}
