package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pawpal/bff/internal/model"
)

// PostgresStore はPostgreSQLを使用したセッションストア。
// BFFの再起動をまたいでセッションを維持する。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Find は指定トークンのセッションを取得する。
// 未登録または期限切れの場合はnilを返す。
func (s *PostgresStore) Find(ctx context.Context, token string) (*model.Session, error) {
	sess := &model.Session{}
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, user_name, user_email, user_role, expires_at, created_at
		 FROM sessions
		 WHERE token = $1 AND expires_at > now()`,
		token,
	).Scan(&sess.Token, &sess.UserID, &sess.UserName, &sess.UserEmail, &sess.UserRole,
		&sess.ExpiresAt, &sess.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return sess, nil
}

// Save はセッションをUPSERTする。
// プロフィール更新時のキャッシュ名更新など、同一トークンへの再保存を許す。
func (s *PostgresStore) Save(ctx context.Context, sess *model.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, user_name, user_email, user_role, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (token) DO UPDATE SET
		   user_id = EXCLUDED.user_id,
		   user_name = EXCLUDED.user_name,
		   user_email = EXCLUDED.user_email,
		   user_role = EXCLUDED.user_role,
		   expires_at = EXCLUDED.expires_at`,
		sess.Token, sess.UserID, sess.UserName, sess.UserEmail, sess.UserRole,
		sess.ExpiresAt, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete は指定トークンのセッションを削除する。
func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token = $1`,
		token,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れセッションを一括削除する。起動時や定期掃除用。
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)
