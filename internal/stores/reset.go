// Package stores implements the reset-token table behind the engine's
// ResetTokenStore interface: a redis-backed store for production and a
// mutex-guarded in-memory store for tests and redis-less development.
package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	resetKeyPrefix       = "pgr"
	resetRecordVersionV1 = 1
)

var (
	ErrResetNotFound    = errors.New("reset record not found")
	ErrResetMismatch    = errors.New("reset token mismatch")
	ErrResetUnavailable = errors.New("reset store unavailable")
)

type resetRecord struct {
	TokenHash [32]byte
	ExpiresAt int64
}

// RedisResetStore keeps one record per case-folded email under a TTL'd key,
// so issuance (SET) atomically replaces any outstanding token and expiry is
// enforced both by redis and by the embedded timestamp.
type RedisResetStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisResetStore(redisClient redis.UniversalClient) *RedisResetStore {
	return &RedisResetStore{
		redis:  redisClient,
		prefix: resetKeyPrefix,
	}
}

func (s *RedisResetStore) key(email string) string {
	return s.prefix + ":" + email
}

func (s *RedisResetStore) Save(ctx context.Context, email string, tokenHash [32]byte, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return errors.New("reset record already expired")
	}

	encoded, err := encodeResetRecord(&resetRecord{
		TokenHash: tokenHash,
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(email), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}

	return nil
}

func (s *RedisResetStore) Validate(ctx context.Context, email string, providedHash [32]byte) error {
	data, err := s.redis.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrResetNotFound
		}
		return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}

	record, err := decodeResetRecord(data)
	if err != nil {
		return err
	}
	if time.Now().Unix() > record.ExpiresAt {
		return ErrResetNotFound
	}
	if subtle.ConstantTimeCompare(record.TokenHash[:], providedHash[:]) != 1 {
		return ErrResetMismatch
	}

	return nil
}

func (s *RedisResetStore) Consume(ctx context.Context, email string, providedHash [32]byte) error {
	const maxRetries = 4
	key := s.key(email)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeResetRecord(data)
			if err != nil {
				return err
			}

			if subtle.ConstantTimeCompare(record.TokenHash[:], providedHash[:]) != 1 {
				return ErrResetMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				// Already consumed or expired; consume is idempotent.
				return nil
			case errors.Is(err, ErrResetMismatch):
				return ErrResetMismatch
			default:
				return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
			}
		}

		return nil
	}

	return fmt.Errorf("%w: consume contention", ErrResetUnavailable)
}

func encodeResetRecord(record *resetRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(resetRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.TokenHash[:])

	return buf.Bytes(), nil
}

func decodeResetRecord(data []byte) (*resetRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != resetRecordVersionV1 {
		return nil, errors.New("invalid reset record version")
	}

	record := &resetRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.TokenHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
