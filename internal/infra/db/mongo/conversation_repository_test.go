package mongo

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func duplicateKeyErr() error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
}

func TestDuplicateKeyRetryRunsOnceMore(t *testing.T) {
	t.Parallel()
	calls := 0
	err := withDuplicateKeyRetry(func() error {
		calls++
		if calls == 1 {
			// First attempt lost the concurrent-creation race.
			return duplicateKeyErr()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry after duplicate key failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestDuplicateKeyRetryStopsAfterSecondDuplicate(t *testing.T) {
	t.Parallel()
	calls := 0
	err := withDuplicateKeyRetry(func() error {
		calls++
		return duplicateKeyErr()
	})
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("err = %v, want duplicate-key error", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestDuplicateKeyRetrySkipsOtherErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("network down")
	calls := 0
	err := withDuplicateKeyRetry(func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
