package mirror

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const updatedAtField = "updated_at"

type RedisMirror struct {
	client *redis.Client
	docKey string
}

func NewRedisMirror(addr string, password string, db int, sessionID string) *RedisMirror {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisMirror{client: client, docKey: DocumentKey(sessionID)}
}

func DocumentKey(sessionID string) string {
	return "sheetpos:mirror:" + sessionID
}

func (m *RedisMirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}

func (m *RedisMirror) Publish(ctx context.Context, collection string, payload []byte) error {
	return m.client.HSet(ctx, m.docKey,
		collection, payload,
		updatedAtField, time.Now().UTC().Format(time.RFC3339),
	).Err()
}

func (m *RedisMirror) Fetch(ctx context.Context, collection string) ([]byte, bool, error) {
	val, err := m.client.HGet(ctx, m.docKey, collection).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}
