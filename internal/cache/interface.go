package cache

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/mmo-manager/internal/game"
)

// ErrCacheMiss ключ отсутствует или истёк
var ErrCacheMiss = errors.New("cache miss")

// StatusStore хранилище ключ-значение с TTL, в которое публикуется
// состояние сервера.
//
// Использование:
//
//	store, err := NewRedisStore(cfg)
//	err = store.Set(ctx, "mmo:status", data, 10*time.Second)
//	data, err := store.Get(ctx, "mmo:status")
type StatusStore interface {
	// Set сохраняет значение с указанным TTL. TTL = 0 — без истечения.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get возвращает значение или ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Close освобождает соединения.
	Close() error
}

// StatusSource источник снимков игрового цикла
type StatusSource interface {
	Current() *game.Status
}
