package blocks

import (
	"errors"
	"fmt"

	"github.com/painterjd/deuce/pkg/store/metadata"
)

var (
	// ErrHashMismatch indicates the uploaded bytes do not hash to the block
	// ID named in the request. Nothing is stored or registered.
	//
	// HTTP: 412 Precondition Failed.
	ErrHashMismatch = errors.New("content hash does not match block ID")

	// ErrLengthMismatch indicates the declared content length disagrees with
	// the number of bytes received.
	//
	// HTTP: 412 Precondition Failed.
	ErrLengthMismatch = errors.New("content length does not match body")
)

// GoneError reports metadata/storage divergence: the block is registered but
// its storage object is missing. The coordinator marks the block invalid in
// metadata before returning this, so the record carries the state observed at
// detection time.
//
// HTTP: 410 Gone, with reference headers populated from Block.
type GoneError struct {
	// Block is the metadata record whose storage object went missing.
	Block *metadata.Block
}

func (e *GoneError) Error() string {
	return fmt.Sprintf("block %s is registered but storage object %s is missing",
		e.Block.BlockID, e.Block.StorageID)
}

// ReferencedError rejects a content-addressed delete while file assignments
// still reference the block.
//
// HTTP: 409 Conflict, with X-Block-Reference-Count.
type ReferencedError struct {
	BlockID  string
	RefCount int64
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("block %s is referenced by %d file assignment(s)",
		e.BlockID, e.RefCount)
}

// BoundError rejects a storage-addressed delete of the live object backing a
// registered block. Only orphans may be reclaimed through the storage API;
// live objects go through the content-addressed DELETE.
//
// HTTP: 409 Conflict, with X-Block-Reference-Count.
type BoundError struct {
	StorageID string
	BlockID   string
	RefCount  int64
}

func (e *BoundError) Error() string {
	return fmt.Sprintf("storage object %s is the live copy of block %s",
		e.StorageID, e.BlockID)
}
