package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spellbook-app/session-gateway/internal/domain/session/model"
)

// RedisSessionStore persists the token pair of each gateway session as
// plain string values under session:<sid>:access_token and
// session:<sid>:refresh_token. Both keys carry the session TTL so an
// abandoned session eventually disappears on its own.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisSessionStore) Set(ctx context.Context, sid string, s model.Session) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, accessKey(sid), s.AccessToken, r.ttl)
	pipe.Set(ctx, refreshKey(sid), s.RefreshToken, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisSessionStore) Get(ctx context.Context, sid string) (model.Session, bool, error) {
	vals, err := r.client.MGet(ctx, accessKey(sid), refreshKey(sid)).Result()
	if err != nil {
		return model.Session{}, false, err
	}

	access, okA := vals[0].(string)
	refresh, okR := vals[1].(string)
	if !okA || !okR {
		// either key missing or expired means no session
		return model.Session{}, false, nil
	}

	return model.Session{
		AccessToken:  access,
		RefreshToken: refresh,
	}, true, nil
}

func (r *RedisSessionStore) Clear(ctx context.Context, sid string) error {
	return r.client.Del(ctx, accessKey(sid), refreshKey(sid)).Err()
}

func accessKey(sid string) string {
	return "session:" + sid + ":access_token"
}

func refreshKey(sid string) string {
	return "session:" + sid + ":refresh_token"
}
