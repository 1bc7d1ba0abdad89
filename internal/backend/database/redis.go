package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "fxshelf:"
	maxTxRetries   = 64

	// index members are "<value>\x00<id>" so a lex range over "<value>\x00" lists the ids
	indexSeparator = "\x00"
)

var (
	recordsKey   = redisKeyPrefix + "images"  // hash id -> record json
	urlsKey      = redisKeyPrefix + "urls"    // hash url -> id
	schemaKey    = redisKeyPrefix + "schema"  // schema version
	promptIdxKey = redisKeyPrefix + "idx:prompt"
	seedIdxKey   = redisKeyPrefix + "idx:seed"
	dateIdxKey   = redisKeyPrefix + "idx:date"
)

// RedisDatabase keeps every record in a single hash so reads and Clear are atomic.
// Secondary indexes are lexicographically ordered sorted sets.
type RedisDatabase struct {
	client *redis.Client

	initMu sync.Mutex
	ready  atomic.Bool
}

// NewRedisDatabase expects a redis URL such as redis://localhost:6379/0.
func NewRedisDatabase(connectionString string) (RecordStore, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis url: %w", ErrStorageUnavailable, err)
	}
	return &RedisDatabase{client: redis.NewClient(opts)}, nil
}

func (s *RedisDatabase) Init(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.ready.Load() {
		return nil
	}

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	created, err := s.client.SetNX(ctx, schemaKey, SchemaVersion, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if created {
		slog.Info("redis schema created", "version", SchemaVersion)
	} else {
		raw, err := s.client.Get(ctx, schemaKey).Result()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		version, err := strconv.Atoi(raw)
		if err != nil || version > SchemaVersion {
			return fmt.Errorf("%w: unsupported schema version %q", ErrStorageUnavailable, raw)
		}
	}

	s.ready.Store(true)
	return nil
}

func (s *RedisDatabase) Close() error {
	return s.client.Close()
}

func (s *RedisDatabase) checkReady() error {
	if !s.ready.Load() {
		return ErrStorageUnavailable
	}
	return nil
}

// watch runs fn in an optimistic transaction and retries when a watched key changed.
func (s *RedisDatabase) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			slog.Debug("redis transaction conflict, retrying", "attempt", i+1)
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction still conflicting after %d attempts", maxTxRetries)
}

func (s *RedisDatabase) Add(ctx context.Context, record *ImageRecord) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	return s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, recordsKey, record.ID).Result()
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, record.ID)
		}
		if err := checkURLOwner(ctx, tx, record); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			writeRecord(ctx, pipe, record, payload)
			return nil
		})
		return err
	}, recordsKey, urlsKey)
}

func (s *RedisDatabase) Update(ctx context.Context, record *ImageRecord) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	return s.watch(ctx, func(tx *redis.Tx) error {
		old, found, err := getRecord(ctx, tx, record.ID)
		if err != nil {
			return err
		}
		if err := checkURLOwner(ctx, tx, record); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if found {
				unindexRecord(ctx, pipe, old)
			}
			writeRecord(ctx, pipe, record, payload)
			return nil
		})
		return err
	}, recordsKey, urlsKey)
}

func (s *RedisDatabase) GetByID(ctx context.Context, id string) (*ImageRecord, bool, error) {
	if err := s.checkReady(); err != nil {
		return nil, false, err
	}
	return getRecord(ctx, s.client, id)
}

func (s *RedisDatabase) FindByURL(ctx context.Context, url string) (*ImageRecord, bool, error) {
	if err := s.checkReady(); err != nil {
		return nil, false, err
	}
	id, err := s.client.HGet(ctx, urlsKey, url).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return getRecord(ctx, s.client, id)
}

func (s *RedisDatabase) FindBySeed(ctx context.Context, seed string) ([]*ImageRecord, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	prefix := seed + indexSeparator
	members, err := s.client.ZRangeByLex(ctx, seedIdxKey, &redis.ZRangeBy{
		Min: "[" + prefix,
		Max: "[" + prefix + "\xff",
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []*ImageRecord{}, nil
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, strings.TrimPrefix(m, prefix))
	}
	values, err := s.client.HMGet(ctx, recordsKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*ImageRecord, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // removed between the two reads
		}
		record, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *RedisDatabase) GetAll(ctx context.Context) ([]*ImageRecord, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	values, err := s.client.HVals(ctx, recordsKey).Result()
	if err != nil {
		return nil, err
	}
	records := make([]*ImageRecord, 0, len(values))
	for _, raw := range values {
		record, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *RedisDatabase) Delete(ctx context.Context, id string) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	return s.watch(ctx, func(tx *redis.Tx) error {
		old, found, err := getRecord(ctx, tx, id)
		if err != nil || !found {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			unindexRecord(ctx, pipe, old)
			pipe.HDel(ctx, recordsKey, id)
			return nil
		})
		return err
	}, recordsKey, urlsKey)
}

func (s *RedisDatabase) Clear(ctx context.Context) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordsKey, urlsKey, promptIdxKey, seedIdxKey, dateIdxKey)
		return nil
	})
	return err
}

// hashReader is satisfied by both *redis.Client and *redis.Tx.
type hashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func checkURLOwner(ctx context.Context, cmd hashReader, record *ImageRecord) error {
	if record.URL == "" {
		return nil
	}
	owner, err := cmd.HGet(ctx, urlsKey, record.URL).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != record.ID {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, record.URL)
	}
	return nil
}

func getRecord(ctx context.Context, cmd hashReader, id string) (*ImageRecord, bool, error) {
	raw, err := cmd.HGet(ctx, recordsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	record, err := decodeRecord(raw)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

func decodeRecord(raw string) (*ImageRecord, error) {
	var record ImageRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &record, nil
}

func indexMember(value, id string) string {
	return value + indexSeparator + id
}

func writeRecord(ctx context.Context, pipe redis.Pipeliner, record *ImageRecord, payload []byte) {
	pipe.HSet(ctx, recordsKey, record.ID, payload)
	if record.URL != "" {
		pipe.HSet(ctx, urlsKey, record.URL, record.ID)
	}
	pipe.ZAdd(ctx, promptIdxKey, redis.Z{Member: indexMember(record.Prompt, record.ID)})
	pipe.ZAdd(ctx, seedIdxKey, redis.Z{Member: indexMember(record.Seed, record.ID)})
	pipe.ZAdd(ctx, dateIdxKey, redis.Z{Member: indexMember(record.Date, record.ID)})
}

func unindexRecord(ctx context.Context, pipe redis.Pipeliner, record *ImageRecord) {
	if record.URL != "" {
		pipe.HDel(ctx, urlsKey, record.URL)
	}
	pipe.ZRem(ctx, promptIdxKey, indexMember(record.Prompt, record.ID))
	pipe.ZRem(ctx, seedIdxKey, indexMember(record.Seed, record.ID))
	pipe.ZRem(ctx, dateIdxKey, indexMember(record.Date, record.ID))
}
