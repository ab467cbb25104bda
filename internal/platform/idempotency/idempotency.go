package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	Header       = "Idempotency-Key"
	ReplayHeader = "Idempotent-Replay"

	pendingMarker = "pending"
	maxKeyLength  = 128
)

var (
	ErrInProgress = errors.New("a request with this idempotency key is still in progress")
	ErrInvalidKey = errors.New("idempotency key is too long")
)

// Key returns the trimmed Idempotency-Key header, or "" when absent.
func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// Response is the stored outcome of the first request for a key.
type Response struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type Store interface {
	// Reserve claims key. When the key already completed, the stored response
	// is returned and reserved is false.
	Reserve(ctx context.Context, key string) (reserved bool, stored *Response, err error)
	Complete(ctx context.Context, key string, resp Response) error
	Release(ctx context.Context, key string)
}

type RedisStore struct {
	client     *redis.Client
	prefix     string
	pendingTTL time.Duration
	resultTTL  time.Duration
}

func NewRedisStore(client *redis.Client, pendingTTL, resultTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "idem:", pendingTTL: pendingTTL, resultTTL: resultTTL}
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (bool, *Response, error) {
	if len(key) > maxKeyLength {
		return false, nil, ErrInvalidKey
	}
	ok, err := s.client.SetNX(ctx, s.prefix+key, pendingMarker, s.pendingTTL).Result()
	if err != nil {
		return false, nil, err
	}
	if ok {
		return true, nil, nil
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = s.client.SetNX(ctx, s.prefix+key, pendingMarker, s.pendingTTL).Result()
		if err != nil {
			return false, nil, err
		}
		if ok {
			return true, nil, nil
		}
		return false, nil, ErrInProgress
	}
	if err != nil {
		return false, nil, err
	}
	if raw == pendingMarker {
		return false, nil, ErrInProgress
	}

	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return false, nil, err
	}
	return false, &resp, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, resp Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, raw, s.resultTTL).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) {
	s.client.Del(ctx, s.prefix+key)
}
