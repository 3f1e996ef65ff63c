package session

import (
	"context"
	"sync"
	"time"

	"github.com/pawpal/bff/internal/model"
)

// MemoryStore はメモリ上のセッションストア。
// テストおよびデータベースなしのローカル起動で使用する。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	now      func() time.Time // テストで時刻を差し替えるためのフック
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
		now:      time.Now,
	}
}

// Find は指定トークンのセッションを取得する。
// 未登録または期限切れの場合はnilを返す。
func (s *MemoryStore) Find(ctx context.Context, token string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	if !sess.ExpiresAt.IsZero() && !sess.ExpiresAt.After(s.now()) {
		return nil, nil
	}

	// 呼び出し元の変更がストアへ波及しないようコピーを返す
	copied := *sess
	return &copied, nil
}

// Save はセッションを保存する。同一トークンは上書きする。
func (s *MemoryStore) Save(ctx context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *sess
	s.sessions[sess.Token] = &copied
	return nil
}

// Delete は指定トークンのセッションを削除する。
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

// Len は保持中のセッション数を返す。テスト用。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
