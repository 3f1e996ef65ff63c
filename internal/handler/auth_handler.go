package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pawpal/bff/internal/middleware"
	"github.com/pawpal/bff/internal/model"
	"github.com/pawpal/bff/internal/session"
	"github.com/pawpal/bff/internal/upstream"
)

// AuthUpstream は認証ハンドラーが必要とする上流操作のインターフェース。
type AuthUpstream interface {
	SearchUsers(ctx context.Context, q string) (*upstream.Result, error)
	CreateUser(ctx context.Context, user upstream.NewUser) (*upstream.Result, error)
}

// TextSanitizer は自由記述テキストのサニタイズインターフェース。
// sanitize.TextSanitizerの部分集合として定義する。
type TextSanitizer interface {
	Text(raw string) string
}

// AuthHandler はログイン・サインアップ・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	users     AuthUpstream
	store     session.Store
	sanitizer TextSanitizer
	cookies   CookieConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(users AuthUpstream, store session.Store, sanitizer TextSanitizer, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		users:     users,
		store:     store,
		sanitizer: sanitizer,
		cookies:   cookies,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// authSuccessResponse はログイン/サインアップ成功時のレスポンス。
type authSuccessResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	User    model.UserSummary `json:"user"`
}

// phonePattern は電話番号の形式。先頭に任意の'+'、続いて1〜16桁の数字、
// 先頭の数字は0以外。ハイフンや空白は許可しない。
var phonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{0,15}$`)

// Login は名前とメールアドレスによるログインを処理する。
// POST /api/login
//
// メールアドレスで上流を検索し、メールと名前の両方が（大文字小文字を無視して）
// 完全一致するユーザーがいればセッションを確立する。メールは存在するが名前が
// 一致しない場合は401、メール自体が見つからない場合は404を返す。
// 不一致の場合セッションストアには一切触れない。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeAPIError(w, model.NewInvalidInputError("Invalid request body"))
		return
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 検証はすべて上流呼び出しの前に行う
	if name == "" {
		writeAPIError(w, model.NewInvalidInputError("Name is required"))
		return
	}
	if email == "" {
		writeAPIError(w, model.NewInvalidInputError("Email is required"))
		return
	}

	slog.Info("login attempt", slog.String("email", email))

	res, err := h.users.SearchUsers(r.Context(), email)
	if err != nil {
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}
	if !res.OK() {
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}

	var users []model.User
	if err := res.DecodeData(&users); err != nil {
		slog.Error("failed to decode user search response", slog.String("error", err.Error()))
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}

	// メールと名前の両方が一致するユーザーを探す
	var matched *model.User
	emailExists := false
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			emailExists = true
			if strings.EqualFold(users[i].Name, name) {
				matched = &users[i]
				break
			}
		}
	}

	if matched == nil {
		if emailExists {
			writeAPIError(w, model.NewUnauthorizedError("Name does not match the email. Please check your credentials."))
		} else {
			writeAPIError(w, model.NewNotFoundError("User not found. Please check your email or sign up first."))
		}
		return
	}

	if err := h.establishSession(r.Context(), w, matched.Summary()); err != nil {
		slog.Error("failed to establish session", slog.String("error", err.Error()))
		writeInternalError(w)
		return
	}

	slog.Info("login successful", slog.Int64("user_id", matched.ID))

	writeJSON(w, http.StatusOK, authSuccessResponse{
		Success: true,
		Message: "Login successful",
		User:    matched.Summary(),
	})
}

// signupRequest はサインアップリクエストのボディ。
// roleはフロントエンドの項目名に合わせてaccountTypeで受け取る。
type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	AccountType     string `json:"accountType"`
	Phone           string `json:"phone"`
	Location        string `json:"location"`
	ProfileImageURL string `json:"profile_image_url"`
	Bio             string `json:"bio"`
}

// Signup はユーザー登録を処理する。
// POST /api/signup
//
// 全必須フィールドを固定順で検証し、最初の欠落で即400を返す。
// 重複チェックは親切なエラーメッセージのためのベストエフォートであり、
// 権威ある409は上流の作成呼び出し自身の応答で扱う。
// 作成成功時は自動ログインとしてセッションを確立する。
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeAPIError(w, model.NewInvalidInputError("Invalid request body"))
		return
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := strings.TrimSpace(req.AccountType)
	if role == "" {
		role = model.RoleOwner
	}
	phone := strings.TrimSpace(req.Phone)
	location := strings.TrimSpace(req.Location)
	profileImageURL := strings.TrimSpace(req.ProfileImageURL)
	bio := strings.TrimSpace(req.Bio)

	if apiErr := validateSignup(name, email, role, phone, location, profileImageURL, bio); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	bio = h.sanitizer.Text(bio)

	slog.Info("signup attempt",
		slog.String("email", email),
		slog.String("role", role),
	)

	// ベストエフォートの重複チェック。見つかれば作成を試みる前に409を返す。
	searchRes, err := h.users.SearchUsers(r.Context(), email)
	if err != nil {
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}
	if searchRes.OK() {
		var existing []model.User
		if decErr := searchRes.DecodeData(&existing); decErr == nil {
			for _, u := range existing {
				if strings.EqualFold(u.Email, email) {
					writeAPIError(w, model.NewConflictError("Email already exists. Please login instead or use a different email."))
					return
				}
			}
		}
	}

	res, err := h.users.CreateUser(r.Context(), upstream.NewUser{
		Name:            name,
		Email:           email,
		Role:            role,
		Phone:           phone,
		Location:        location,
		ProfileImageURL: profileImageURL,
		Bio:             bio,
	})
	if err != nil {
		writeAPIError(w, model.NewServiceUnavailableError("User service"))
		return
	}

	switch res.StatusCode {
	case http.StatusCreated:
		h.respondCreated(r.Context(), w, res, http.StatusCreated, name, email, role)

	case http.StatusOK:
		// 一部のサービスは201ではなく200を返す
		if !res.Success() {
			writeFailure(w, http.StatusBadRequest, "Failed to create account")
			return
		}
		h.respondCreated(r.Context(), w, res, http.StatusOK, name, email, role)

	case http.StatusConflict:
		writeAPIError(w, model.NewConflictError("Email already exists. Please use a different email."))

	case http.StatusBadRequest:
		// 上流のフィールド別バリデーションエラーを1つのメッセージに連結する
		if details := res.FieldErrors(); len(details) > 0 {
			lines := make([]string, 0, len(details))
			for _, d := range details {
				field := d.Field
				if field == "" {
					field = "unknown"
				}
				msg := d.Message
				if msg == "" {
					msg = "validation error"
				}
				lines = append(lines, field+": "+msg)
			}
			writeFailure(w, http.StatusBadRequest, "Validation errors:\n"+strings.Join(lines, "\n"))
			return
		}
		writeFailure(w, http.StatusBadRequest, res.Message("Invalid input data"))

	default:
		// 想定外のステータスは上流のステータスをそのまま透過する
		slog.Error("unexpected status from user service",
			slog.Int("status", res.StatusCode),
		)
		writeAPIError(w, model.NewUpstreamError(res.StatusCode,
			fmt.Sprintf("Failed to create account. Server returned status %d", res.StatusCode)))
	}
}

// respondCreated は作成応答からユーザーを取り出し、自動ログインのうえ成功応答を書く。
// 応答にフィールドが欠けている場合はリクエスト値で補う。
func (h *AuthHandler) respondCreated(ctx context.Context, w http.ResponseWriter, res *upstream.Result, statusCode int, name, email, role string) {
	var created model.User
	if err := res.DecodeData(&created); err != nil {
		slog.Error("failed to decode created user", slog.String("error", err.Error()))
	}

	summary := created.Summary()
	if summary.Name == "" {
		summary.Name = name
	}
	if summary.Email == "" {
		summary.Email = email
	}
	if summary.Role == "" {
		summary.Role = role
	}

	if err := h.establishSession(ctx, w, summary); err != nil {
		slog.Error("failed to establish session", slog.String("error", err.Error()))
		writeInternalError(w)
		return
	}

	slog.Info("user created", slog.Int64("user_id", summary.ID))

	writeJSON(w, statusCode, authSuccessResponse{
		Success: true,
		Message: "Account created successfully",
		User:    summary,
	})
}

// validateSignup は必須チェックを固定順（name, email, phone, location,
// profile_image_url, bio）で行い、その後に形式チェック（email形状、role列挙、
// phoneパターン）を行う。最初に失敗したチェックのエラーを返す。
func validateSignup(name, email, role, phone, location, profileImageURL, bio string) *model.APIError {
	if name == "" {
		return model.NewInvalidInputError("Name is required")
	}
	if email == "" {
		return model.NewInvalidInputError("Email is required")
	}
	if phone == "" {
		return model.NewInvalidInputError("Phone is required")
	}
	if location == "" {
		return model.NewInvalidInputError("Location is required")
	}
	if profileImageURL == "" {
		return model.NewInvalidInputError("Profile image URL is required")
	}
	if bio == "" {
		return model.NewInvalidInputError("Bio is required")
	}

	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return model.NewInvalidInputError("Invalid email format")
	}
	if !model.IsValidRole(role) {
		return model.NewInvalidInputError(`Invalid role. Must be "owner" or "walker"`)
	}
	if !phonePattern.MatchString(phone) {
		return model.NewInvalidInputError("Invalid phone format. Use digits only (e.g., 15551234567) or with + prefix (e.g., +8613812345678). No dashes or spaces allowed.")
	}

	return nil
}

// Logout はセッションを破棄する。常に成功する。
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if delErr := h.store.Delete(r.Context(), cookie.Value); delErr != nil {
			// ストア削除に失敗してもCookieはクリアして成功を返す
			slog.Error("failed to delete session", slog.String("error", delErr.Error()))
		}
	}

	clearSessionCookie(w, h.cookies)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

// CurrentUser は現在のログインユーザー情報を返す。
// GET /api/current-user
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeAPIError(w, model.NewUnauthenticatedError("Not logged in"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    sess.User(),
	})
}

// establishSession は新しいセッションを保存し、セッションCookieを設定する。
func (h *AuthHandler) establishSession(ctx context.Context, w http.ResponseWriter, user model.UserSummary) error {
	now := time.Now()
	sess := &model.Session{
		Token:     session.NewToken(),
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		UserRole:  user.Role,
		ExpiresAt: now.Add(time.Duration(h.cookies.MaxAge) * time.Second),
		CreatedAt: now,
	}
	if err := h.store.Save(ctx, sess); err != nil {
		return err
	}
	setSessionCookie(w, h.cookies, sess.Token)
	return nil
}
