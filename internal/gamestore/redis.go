package gamestore

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSeqKey    = "chess:game:seq"
	redisKeyPrefix = "chess:game:"
)

// RedisStore keeps each record as one JSON value.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to redisURL (redis://[:pass@]host:port/db).
// ttl of zero keeps records forever.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis game store")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) Create(ctx context.Context, name string) (*GameRecord, error) {
	id, err := s.rdb.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		return nil, storageErr("next id", err)
	}
	rec := NewRecord(id, strings.TrimSpace(name))
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, storageErr("encode", err)
	}
	if err := s.rdb.Set(ctx, gameKey(id), raw, s.ttl).Err(); err != nil {
		return nil, storageErr("create", err)
	}
	return rec, nil
}

func (s *RedisStore) Load(ctx context.Context, id int64) (*GameRecord, error) {
	raw, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageErr("load", err)
	}
	return decodeRecord(raw)
}

// Save overwrites an existing record. The key is watched so a record deleted
// or expired between check and write is reported as not found.
func (s *RedisStore) Save(ctx context.Context, rec *GameRecord) error {
	if rec == nil {
		return storageErr("save", errNilRecord)
	}
	key := gameKey(rec.ID)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound(rec.ID)
		}
		rec.UpdatedAt = time.Now().UTC()
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, raw, s.ttl)
		_, err = pipe.Exec(ctx)
		return err
	}, key)
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return storageErr("save", err)
}

func decodeRecord(raw []byte) (*GameRecord, error) {
	var rec GameRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, storageErr("decode", err)
	}
	if rec.State == nil {
		return nil, storageErr("decode", errors.New("record without game state"))
	}
	if rec.MovesUCI == nil {
		rec.MovesUCI = []string{}
	}
	if rec.MovesSAN == nil {
		rec.MovesSAN = []string{}
	}
	return &rec, nil
}

func gameKey(id int64) string { return redisKeyPrefix + strconv.FormatInt(id, 10) }

// ParseRedisURL converts redis://[:pass@]host:port/db into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: u.Host, Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
