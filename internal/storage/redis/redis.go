// Package redis — хранилище refresh-токенов в Redis. Аккаунты здесь не
// хранятся: пакет используется как TOKEN_STORAGE_DRIVER поверх основного хранилища.
//
// Раскладка ключей (prefix по умолчанию "auth:"):
//
//	<prefix>rt:<id>         hash {acc, tok, ts}
//	<prefix>rtv:<token>     string id
//	<prefix>acct:<account>  set of id
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pribylovaa/rideshare-auth/internal/config"
	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
)

const defaultPrefix = "auth:"

// Store реализует storage.RefreshTokenStorage.
type Store struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0) и
// проверяет соединение. ttl > 0 выставляет EXPIRE на записи как страховку
// на случай, если очистка не успела их удалить.
func New(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*Store, error) {
	const op = "storage.redis.New"

	opt, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse url: %w", op, err)
	}

	rdb := goredis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return NewWithClient(rdb, cfg.Prefix, ttl), nil
}

// NewWithClient оборачивает готовый клиент.
func NewWithClient(rdb *goredis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Store{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Close закрывает клиент Redis.
func (s *Store) Close() {
	_ = s.rdb.Close()
}

func (s *Store) recordKey(id string) string         { return s.prefix + "rt:" + id }
func (s *Store) valueKey(token string) string       { return s.prefix + "rtv:" + token }
func (s *Store) accountKey(accountID string) string { return s.prefix + "acct:" + accountID }

// InsertRefreshToken резервирует значение через SETNX, затем пишет запись
// и индекс аккаунта одной транзакцией.
func (s *Store) InsertRefreshToken(ctx context.Context, accountID, token string) (string, error) {
	const op = "storage.redis.InsertRefreshToken"

	id := uuid.NewString()

	ok, err := s.rdb.SetNX(ctx, s.valueKey(token), id, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return "", fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	now := time.Now().UTC()

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.recordKey(id), map[string]any{
		"acc": accountID,
		"tok": token,
		"ts":  strconv.FormatInt(now.UnixNano(), 10),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, s.recordKey(id), s.ttl)
	}
	pipe.SAdd(ctx, s.accountKey(accountID), id)

	if _, err := pipe.Exec(ctx); err != nil {
		_ = s.rdb.Del(ctx, s.valueKey(token)).Err()
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// RefreshTokenByValue находит запись по значению токена.
func (s *Store) RefreshTokenByValue(ctx context.Context, token string) (*models.RefreshToken, error) {
	const op = "storage.redis.RefreshTokenByValue"

	id, err := s.rdb.Get(ctx, s.valueKey(token)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rt, found, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return rt, nil
}

// RefreshTokensByAccount возвращает записи аккаунта, старые первыми.
// Идентификаторы без записи (истёкшие по TTL) пропускаются.
func (s *Store) RefreshTokensByAccount(ctx context.Context, accountID string) ([]models.RefreshToken, error) {
	const op = "storage.redis.RefreshTokensByAccount"

	ids, err := s.rdb.SMembers(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.RefreshToken, 0, len(ids))
	for _, id := range ids {
		rt, found, err := s.load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if found {
			out = append(out, *rt)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

// DeleteRefreshToken удаляет запись по ID. Победитель при гонке — тот,
// чей DEL записи вернул 1 внутри MULTI/EXEC.
func (s *Store) DeleteRefreshToken(ctx context.Context, id string) (bool, error) {
	const op = "storage.redis.DeleteRefreshToken"

	rt, found, err := s.load(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return false, nil
	}

	existed, err := s.remove(ctx, rt)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return existed, nil
}

// DeleteRefreshTokensByAccount удаляет записи аккаунта, прочитанные из индекса.
// Из индекса снимаются только эти ID: запись, вставленная параллельно,
// остаётся в индексе и находится следующим вызовом.
func (s *Store) DeleteRefreshTokensByAccount(ctx context.Context, accountID string) (int64, error) {
	const op = "storage.redis.DeleteRefreshTokensByAccount"

	ids, err := s.rdb.SMembers(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var n int64
	for _, id := range ids {
		rt, found, err := s.load(ctx, id)
		if err != nil {
			return n, fmt.Errorf("%s: %w", op, err)
		}
		if !found {
			// Запись истекла по TTL, в индексе остался висячий ID.
			if err := s.rdb.SRem(ctx, s.accountKey(accountID), id).Err(); err != nil {
				return n, fmt.Errorf("%s: %w", op, err)
			}
			continue
		}

		existed, err := s.remove(ctx, rt)
		if err != nil {
			return n, fmt.Errorf("%s: %w", op, err)
		}
		if existed {
			n++
		}
	}

	return n, nil
}

// ScanRefreshTokens обходит записи через SCAN по шаблону ключа записи.
func (s *Store) ScanRefreshTokens(ctx context.Context, fn func(models.RefreshToken) error) error {
	const op = "storage.redis.ScanRefreshTokens"

	recPrefix := s.recordKey("")
	iter := s.rdb.Scan(ctx, 0, recPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()[len(recPrefix):]

		rt, found, err := s.load(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !found {
			continue
		}

		if err := fn(*rt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) load(ctx context.Context, id string) (*models.RefreshToken, bool, error) {
	m, err := s.rdb.HGetAll(ctx, s.recordKey(id)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	ts, err := strconv.ParseInt(m["ts"], 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("record %s: bad ts: %w", id, err)
	}

	return &models.RefreshToken{
		ID:        id,
		AccountID: m["acc"],
		Token:     m["tok"],
		CreatedAt: time.Unix(0, ts).UTC(),
	}, true, nil
}

func (s *Store) remove(ctx context.Context, rt *models.RefreshToken) (bool, error) {
	pipe := s.rdb.TxPipeline()
	del := pipe.Del(ctx, s.recordKey(rt.ID))
	pipe.Del(ctx, s.valueKey(rt.Token))
	pipe.SRem(ctx, s.accountKey(rt.AccountID), rt.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return del.Val() == 1, nil
}

// Проверка на соответствие интерфейсу RefreshTokenStorage.
var _ storage.RefreshTokenStorage = (*Store)(nil)
