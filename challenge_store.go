package goOTP

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goOTP/internal"
	"github.com/MrEthical07/goOTP/internal/stores"
	"github.com/redis/go-redis/v9"
)

// redisChallengeStore adapts the internal Redis challenge store to the public
// [ChallengeStore] contract. It is the default store wired by
// [Builder.WithRedis]; integrations with their own persistence supply a
// custom store via [Builder.WithChallengeStore].
type redisChallengeStore struct {
	inner *stores.ChallengeStore
}

func newRedisChallengeStore(client redis.UniversalClient, prefix string) *redisChallengeStore {
	return &redisChallengeStore{inner: stores.NewChallengeStore(client, prefix)}
}

func (s *redisChallengeStore) Create(ctx context.Context, challenge *Challenge) (string, error) {
	if challenge.TransactionID == "" {
		challenge.TransactionID = internal.NewTransactionID()
	}
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = time.Now()
	}

	record := &stores.ChallengeRecord{
		Serial:          challenge.Serial,
		TransactionID:   challenge.TransactionID,
		Challenge:       challenge.Challenge,
		Data:            challenge.Data,
		Session:         challenge.Session,
		CreatedAt:       challenge.CreatedAt.Unix(),
		ValiditySeconds: int64(challenge.Validity / time.Second),
	}
	if err := s.inner.Save(ctx, record); err != nil {
		return "", mapStoreError(err)
	}
	return challenge.TransactionID, nil
}

func (s *redisChallengeStore) GetByTransaction(ctx context.Context, transactionID string) ([]*Challenge, error) {
	records, err := s.inner.GetByTransaction(ctx, transactionID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return challengesFromRecords(records), nil
}

func (s *redisChallengeStore) GetByToken(ctx context.Context, serial string) ([]*Challenge, error) {
	records, err := s.inner.GetByToken(ctx, serial)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return challengesFromRecords(records), nil
}

func (s *redisChallengeStore) Consume(ctx context.Context, serial, transactionID string) (bool, error) {
	consumed, err := s.inner.Consume(ctx, serial, transactionID)
	return consumed, mapStoreError(err)
}

func (s *redisChallengeStore) Delete(ctx context.Context, serial, transactionID string) error {
	return mapStoreError(s.inner.Delete(ctx, serial, transactionID))
}

// mapStoreError translates internal store sentinels into the public error
// taxonomy so errors.Is works across the package boundary.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrChallengeNotFound):
		return ErrChallengeNotFound
	case errors.Is(err, stores.ErrChallengeBackend):
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	default:
		return err
	}
}

func challengesFromRecords(records []*stores.ChallengeRecord) []*Challenge {
	out := make([]*Challenge, 0, len(records))
	for _, record := range records {
		out = append(out, &Challenge{
			Serial:        record.Serial,
			TransactionID: record.TransactionID,
			Challenge:     record.Challenge,
			Data:          record.Data,
			Session:       record.Session,
			CreatedAt:     time.Unix(record.CreatedAt, 0),
			Validity:      time.Duration(record.ValiditySeconds) * time.Second,
		})
	}
	return out
}
