package stores

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*ChallengeStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewChallengeStore(client, "oc"), mr
}

func testRecord(serial, transactionID string, createdAt time.Time, validitySeconds int64) *ChallengeRecord {
	return &ChallengeRecord{
		Serial:          serial,
		TransactionID:   transactionID,
		Challenge:       "enter otp",
		Data:            "123456",
		CreatedAt:       createdAt.Unix(),
		ValiditySeconds: validitySeconds,
	}
}

func TestChallengeStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	record := testRecord("SMS00001", "tx-1", time.Now(), 300)
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	byTx, err := store.GetByTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetByTransaction failed: %v", err)
	}
	if len(byTx) != 1 || byTx[0].Serial != "SMS00001" || byTx[0].Data != "123456" {
		t.Fatalf("unexpected records: %+v", byTx)
	}

	bySerial, err := store.GetByToken(ctx, "SMS00001")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(bySerial) != 1 || bySerial[0].TransactionID != "tx-1" {
		t.Fatalf("unexpected records: %+v", bySerial)
	}
}

func TestChallengeStoreValidityBoundary(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// 299 seconds into a 300 second validity: still open.
	fresh := testRecord("SMS00002", "tx-fresh", time.Now().Add(-299*time.Second), 300)
	if err := store.Save(ctx, fresh); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	records, err := store.GetByTransaction(ctx, "tx-fresh")
	if err != nil {
		t.Fatalf("GetByTransaction failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected record at 299s, got %d", len(records))
	}

	// 301 seconds: lazily discarded at lookup time.
	stale := testRecord("SMS00002", "tx-stale", time.Now().Add(-301*time.Second), 300)
	if err := store.Save(ctx, stale); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	records, err = store.GetByTransaction(ctx, "tx-stale")
	if err != nil {
		t.Fatalf("GetByTransaction failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected expired record discarded, got %d", len(records))
	}

	// The lazy delete removed the record, not just hid it.
	consumed, err := store.Consume(ctx, "SMS00002", "tx-stale")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if consumed {
		t.Fatal("expected expired record to be gone")
	}
}

func TestChallengeStoreConsumeOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	record := testRecord("SMS00003", "tx-2", time.Now(), 300)
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	first, err := store.Consume(ctx, "SMS00003", "tx-2")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if !first {
		t.Fatal("expected first consume to win")
	}

	second, err := store.Consume(ctx, "SMS00003", "tx-2")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if second {
		t.Fatal("expected second consume to lose")
	}

	records, err := store.GetByToken(ctx, "SMS00003")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no open challenges, got %d", len(records))
	}
}

func TestChallengeStoreMultipleTokensPerTransaction(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testRecord("SMS00004", "tx-3", time.Now(), 300)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, testRecord("HOTP0004", "tx-3", time.Now(), 300)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records, err := store.GetByTransaction(ctx, "tx-3")
	if err != nil {
		t.Fatalf("GetByTransaction failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected both token records, got %d", len(records))
	}

	// Consuming one serial leaves the other open.
	if _, err := store.Consume(ctx, "SMS00004", "tx-3"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	records, err = store.GetByTransaction(ctx, "tx-3")
	if err != nil {
		t.Fatalf("GetByTransaction failed: %v", err)
	}
	if len(records) != 1 || records[0].Serial != "HOTP0004" {
		t.Fatalf("expected HOTP0004 still open, got %+v", records)
	}
}

func TestChallengeStoreDeleteIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Delete(ctx, "SMS00005", "tx-missing"); err != nil {
		t.Fatalf("Delete of absent record failed: %v", err)
	}

	records, err := store.GetByTransaction(ctx, "tx-missing")
	if err != nil {
		t.Fatalf("GetByTransaction failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}
