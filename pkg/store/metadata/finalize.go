package metadata

import "context"

// SizeLookup resolves the registered size of a block. ok is false when the
// block has no live binding.
type SizeLookup func(ctx context.Context, blockID string) (size int64, ok bool, err error)

// VerifyTiling walks a file's assignments in offset-ascending order and
// checks that they tile [0, declaredSize) exactly. Every driver runs this
// walk before flipping a file to finalized.
//
// Assignments whose Size is nil were made before their block was registered;
// the size is resolved through sizeOf now. Blocks that are still unregistered
// are skipped, which leaves a hole for the walk to report.
//
// Returns nil on a clean tiling, *GapError for uncovered bytes, *OverlapError
// for double-covered bytes, or the error from a failed size lookup.
func VerifyTiling(ctx context.Context, assignments []FileBlock, declaredSize int64, sizeOf SizeLookup) error {
	var expected int64
	var lastBlockID string

	for _, fb := range assignments {
		size := fb.Size
		if size == nil {
			resolved, ok, err := sizeOf(ctx, fb.BlockID)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			size = &resolved
		}

		switch {
		case fb.Offset == expected:
			expected += *size
			lastBlockID = fb.BlockID
		case fb.Offset < expected:
			return &OverlapError{BlockID: fb.BlockID, Start: fb.Offset, End: expected}
		default:
			return &GapError{Start: expected, End: fb.Offset}
		}
	}

	if declaredSize != expected {
		if expected < declaredSize {
			return &GapError{Start: expected, End: declaredSize}
		}
		return &OverlapError{BlockID: lastBlockID, Start: declaredSize, End: expected}
	}

	return nil
}
