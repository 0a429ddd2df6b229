package batchnumber

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/verdantpos/greenledger-backend/internal/sequence"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
)

type fakeSequenceStore struct {
	nextBatch    func(ctx context.Context, key sequence.BatchKey, requestedBy string) (int64, error)
	currentBatch func(ctx context.Context, key sequence.BatchKey) (int64, error)
	nextSerial   func(ctx context.Context, key sequence.SerialKey, requestedBy string) (int64, error)
}

func (f *fakeSequenceStore) NextBatch(ctx context.Context, key sequence.BatchKey, requestedBy string) (int64, error) {
	if f.nextBatch != nil {
		return f.nextBatch(ctx, key, requestedBy)
	}
	return 1, nil
}

func (f *fakeSequenceStore) CurrentBatch(ctx context.Context, key sequence.BatchKey) (int64, error) {
	if f.currentBatch != nil {
		return f.currentBatch(ctx, key)
	}
	return 0, nil
}

func (f *fakeSequenceStore) NextSerial(ctx context.Context, key sequence.SerialKey, requestedBy string) (int64, error) {
	if f.nextSerial != nil {
		return f.nextSerial(ctx, key, requestedBy)
	}
	return 1, nil
}

func (f *fakeSequenceStore) CurrentSerial(ctx context.Context, key sequence.SerialKey) (int64, error) {
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestGenerateFormatsAllocatedSequence(t *testing.T) {
	var gotKey sequence.BatchKey
	var gotRequestedBy string
	store := &fakeSequenceStore{
		nextBatch: func(ctx context.Context, key sequence.BatchKey, requestedBy string) (int64, error) {
			gotKey = key
			gotRequestedBy = requestedBy
			return 17, nil
		},
	}
	svc, err := NewService(store, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	batchDate := time.Date(2025, 12, 10, 15, 4, 5, 0, time.UTC)
	result, err := svc.Generate(context.Background(), GenerateInput{
		SiteID:      7,
		BatchType:   enums.BatchTypeGRV,
		BatchDate:   &batchDate,
		RequestedBy: "receiver@site7",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if result.BatchNumber != "0702202512100017" {
		t.Fatalf("unexpected batch number: %s", result.BatchNumber)
	}
	if gotKey.SiteID != 7 || gotKey.BatchType != enums.BatchTypeGRV {
		t.Fatalf("unexpected sequence key: %+v", gotKey)
	}
	if !gotKey.BucketDate.Equal(time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("bucket date not normalized: %s", gotKey.BucketDate)
	}
	if gotRequestedBy != "receiver@site7" {
		t.Fatalf("audit actor not threaded through: %q", gotRequestedBy)
	}
	if result.Components.Sequence != 17 {
		t.Fatalf("components must carry the allocated sequence: %+v", result.Components)
	}
}

func TestGenerateValidation(t *testing.T) {
	svc, err := NewService(&fakeSequenceStore{}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	cases := map[string]GenerateInput{
		"missing site":      {BatchType: enums.BatchTypeProduction, RequestedBy: "x"},
		"site too large":    {SiteID: 100, BatchType: enums.BatchTypeProduction, RequestedBy: "x"},
		"missing type":      {SiteID: 1, RequestedBy: "x"},
		"unknown type":      {SiteID: 1, BatchType: enums.BatchType("mystery"), RequestedBy: "x"},
		"missing requester": {SiteID: 1, BatchType: enums.BatchTypeProduction},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Generate(context.Background(), input); err == nil {
				t.Fatal("expected validation error")
			} else if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestGeneratePropagatesCapacityError(t *testing.T) {
	store := &fakeSequenceStore{
		nextBatch: func(ctx context.Context, key sequence.BatchKey, requestedBy string) (int64, error) {
			return 0, pkgerrors.Newf(pkgerrors.CodeCapacity, "batch number sequence exhausted for %s", key)
		},
	}
	svc, err := NewService(store, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.Generate(context.Background(), GenerateInput{
		SiteID:      1,
		BatchType:   enums.BatchTypeProduction,
		RequestedBy: "x",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeCapacity) {
		t.Fatalf("capacity error must pass through unchanged, got %v", err)
	}
}

func TestExists(t *testing.T) {
	store := &fakeSequenceStore{
		currentBatch: func(ctx context.Context, key sequence.BatchKey) (int64, error) {
			return 5, nil
		},
	}
	svc, err := NewService(store, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	issued := Format(Components{SiteID: 1, BatchType: enums.BatchTypeProduction, BatchDate: time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC), Sequence: 5})
	ok, err := svc.Exists(ctx, issued)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatal("sequence 5 of 5 must exist")
	}

	unissued := Format(Components{SiteID: 1, BatchType: enums.BatchTypeProduction, BatchDate: time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC), Sequence: 6})
	ok, err = svc.Exists(ctx, unissued)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatal("sequence 6 of 5 must not exist")
	}

	if _, err := svc.Exists(ctx, "garbage"); err == nil {
		t.Fatal("malformed batch number must error")
	}
}
