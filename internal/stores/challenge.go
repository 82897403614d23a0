package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeRecordVersion1 = 1

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeBackend  = errors.New("challenge backend unavailable")
)

// ChallengeRecord is the persisted shape of one challenge-response cycle.
type ChallengeRecord struct {
	Version         int    `json:"v"`
	Serial          string `json:"serial"`
	TransactionID   string `json:"transaction_id"`
	Challenge       string `json:"challenge,omitempty"`
	Data            string `json:"data,omitempty"`
	Session         string `json:"session,omitempty"`
	CreatedAt       int64  `json:"created_at"`
	ValiditySeconds int64  `json:"validity"`
}

func (r *ChallengeRecord) expired(now time.Time) bool {
	return now.Unix() > r.CreatedAt+r.ValiditySeconds
}

// ChallengeStore persists challenge records in Redis.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "oc"
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ChallengeStore) recordKey(transactionID, serial string) string {
	return s.prefix + ":c:" + transactionID + ":" + serial
}

func (s *ChallengeStore) txKey(transactionID string) string {
	return s.prefix + ":tx:" + transactionID
}

func (s *ChallengeStore) serialKey(serial string) string {
	return s.prefix + ":ser:" + serial
}

// Save persists a record with a TTL of its validity. Index sets carry the
// same TTL, refreshed to the longest-lived member.
func (s *ChallengeStore) Save(ctx context.Context, record *ChallengeRecord) error {
	record.Version = challengeRecordVersion1
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}

	ttl := time.Duration(record.ValiditySeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Second
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.recordKey(record.TransactionID, record.Serial), encoded, ttl)
	pipe.SAdd(ctx, s.txKey(record.TransactionID), record.Serial)
	pipe.Expire(ctx, s.txKey(record.TransactionID), ttl)
	pipe.SAdd(ctx, s.serialKey(record.Serial), record.TransactionID)
	pipe.Expire(ctx, s.serialKey(record.Serial), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

// GetByTransaction returns all open (unexpired) records for a transaction id.
// Expired records encountered during the scan are deleted lazily.
func (s *ChallengeStore) GetByTransaction(ctx context.Context, transactionID string) ([]*ChallengeRecord, error) {
	serials, err := s.redis.SMembers(ctx, s.txKey(transactionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	records := make([]*ChallengeRecord, 0, len(serials))
	for _, serial := range serials {
		record, err := s.load(ctx, transactionID, serial)
		if err != nil {
			if errors.Is(err, ErrChallengeNotFound) {
				_, _ = s.redis.SRem(ctx, s.txKey(transactionID), serial).Result()
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// GetByToken returns all open (unexpired) records for a token serial.
func (s *ChallengeStore) GetByToken(ctx context.Context, serial string) ([]*ChallengeRecord, error) {
	transactionIDs, err := s.redis.SMembers(ctx, s.serialKey(serial)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	records := make([]*ChallengeRecord, 0, len(transactionIDs))
	for _, transactionID := range transactionIDs {
		record, err := s.load(ctx, transactionID, serial)
		if err != nil {
			if errors.Is(err, ErrChallengeNotFound) {
				_, _ = s.redis.SRem(ctx, s.serialKey(serial), transactionID).Result()
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *ChallengeStore) load(ctx context.Context, transactionID, serial string) (*ChallengeRecord, error) {
	data, err := s.redis.Get(ctx, s.recordKey(transactionID, serial)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	record := &ChallengeRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	if record.Version != challengeRecordVersion1 {
		return nil, fmt.Errorf("%w: invalid challenge record version", ErrChallengeBackend)
	}
	if record.expired(time.Now()) {
		_, _ = s.redis.Del(ctx, s.recordKey(transactionID, serial)).Result()
		return nil, ErrChallengeNotFound
	}
	return record, nil
}

// Consume deletes the record. The DEL reply count guarantees at most one
// concurrent consumer sees true for a given challenge.
func (s *ChallengeStore) Consume(ctx context.Context, serial, transactionID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.recordKey(transactionID, serial)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	_, _ = s.redis.SRem(ctx, s.txKey(transactionID), serial).Result()
	_, _ = s.redis.SRem(ctx, s.serialKey(serial), transactionID).Result()
	return n > 0, nil
}

// Delete removes the record and its index entries unconditionally.
func (s *ChallengeStore) Delete(ctx context.Context, serial, transactionID string) error {
	_, err := s.Consume(ctx, serial, transactionID)
	return err
}
