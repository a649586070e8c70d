package metadata

import (
	"context"
	"errors"
	"testing"
)

func sizeOf(sizes map[string]int64) SizeLookup {
	return func(_ context.Context, blockID string) (int64, bool, error) {
		s, ok := sizes[blockID]
		return s, ok, nil
	}
}

func ptr(v int64) *int64 { return &v }

func TestVerifyTilingClean(t *testing.T) {
	assignments := []FileBlock{
		{BlockID: "b1", Offset: 0, Size: ptr(100)},
		{BlockID: "b2", Offset: 100, Size: ptr(100)},
		{BlockID: "b3", Offset: 200, Size: ptr(100)},
	}

	if err := VerifyTiling(context.Background(), assignments, 300, sizeOf(nil)); err != nil {
		t.Fatalf("clean tiling rejected: %v", err)
	}
}

func TestVerifyTilingEmptyFile(t *testing.T) {
	if err := VerifyTiling(context.Background(), nil, 0, sizeOf(nil)); err != nil {
		t.Fatalf("empty file with size 0 rejected: %v", err)
	}
}

func TestVerifyTilingGap(t *testing.T) {
	assignments := []FileBlock{
		{BlockID: "b1", Offset: 0, Size: ptr(100)},
		{BlockID: "b3", Offset: 200, Size: ptr(100)},
	}

	err := VerifyTiling(context.Background(), assignments, 300, sizeOf(nil))
	var gap *GapError
	if !errors.As(err, &gap) {
		t.Fatalf("want GapError, got %v", err)
	}
	if gap.Start != 100 || gap.End != 200 {
		t.Fatalf("gap range = [%d, %d), want [100, 200)", gap.Start, gap.End)
	}
}

func TestVerifyTilingOverlap(t *testing.T) {
	assignments := []FileBlock{
		{BlockID: "b1", Offset: 0, Size: ptr(100)},
		{BlockID: "b2", Offset: 50, Size: ptr(100)},
	}

	err := VerifyTiling(context.Background(), assignments, 150, sizeOf(nil))
	var overlap *OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("want OverlapError, got %v", err)
	}
	if overlap.BlockID != "b2" {
		t.Fatalf("overlap block = %q, want b2", overlap.BlockID)
	}
	if overlap.Start != 50 || overlap.End != 100 {
		t.Fatalf("overlap range = [%d, %d), want [50, 100)", overlap.Start, overlap.End)
	}
}

func TestVerifyTilingDeclaredSizeShort(t *testing.T) {
	assignments := []FileBlock{
		{BlockID: "b1", Offset: 0, Size: ptr(100)},
	}

	// Blocks extend past the declared length.
	err := VerifyTiling(context.Background(), assignments, 80, sizeOf(nil))
	var overlap *OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("want OverlapError, got %v", err)
	}
	if overlap.BlockID != "b1" || overlap.Start != 80 || overlap.End != 100 {
		t.Fatalf("overlap = %+v, want b1 [80, 100)", overlap)
	}
}

func TestVerifyTilingDeclaredSizeLong(t *testing.T) {
	assignments := []FileBlock{
		{BlockID: "b1", Offset: 0, Size: ptr(100)},
	}

	// Declared length extends past the last block.
	err := VerifyTiling(context.Background(), assignments, 150, sizeOf(nil))
	var gap *GapError
	if !errors.As(err, &gap) {
		t.Fatalf("want GapError, got %v", err)
	}
	if gap.Start != 100 || gap.End != 150 {
		t.Fatalf("gap range = [%d, %d), want [100, 150)", gap.Start, gap.End)
	}
}

func TestVerifyTilingResolvesNilSizes(t *testing.T) {
	assignments := []FileBlock{
		{BlockID: "b1", Offset: 0, Size: nil},
		{BlockID: "b2", Offset: 100, Size: nil},
	}
	sizes := map[string]int64{"b1": 100, "b2": 50}

	if err := VerifyTiling(context.Background(), assignments, 150, sizeOf(sizes)); err != nil {
		t.Fatalf("resolvable nil sizes rejected: %v", err)
	}
}

func TestVerifyTilingSkipsUnregisteredBlocks(t *testing.T) {
	// b2 was assigned but never registered; its bytes stay uncovered and the
	// declared-size check reports the hole.
	assignments := []FileBlock{
		{BlockID: "b1", Offset: 0, Size: ptr(100)},
		{BlockID: "b2", Offset: 100, Size: nil},
	}

	err := VerifyTiling(context.Background(), assignments, 200, sizeOf(map[string]int64{"b1": 100}))
	var gap *GapError
	if !errors.As(err, &gap) {
		t.Fatalf("want GapError, got %v", err)
	}
	if gap.Start != 100 || gap.End != 200 {
		t.Fatalf("gap range = [%d, %d), want [100, 200)", gap.Start, gap.End)
	}
}

func TestVerifyTilingLookupError(t *testing.T) {
	boom := errors.New("backend down")
	lookup := func(context.Context, string) (int64, bool, error) { return 0, false, boom }

	assignments := []FileBlock{{BlockID: "b1", Offset: 0, Size: nil}}
	if err := VerifyTiling(context.Background(), assignments, 10, lookup); !errors.Is(err, boom) {
		t.Fatalf("lookup error not propagated, got %v", err)
	}
}
