package files

import (
	"context"
	"io"
	"io/fs"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
	"github.com/painterjd/deuce/pkg/store/storage"
)

// manifestPageSize is how many assignments the streaming reader fetches per
// metadata round trip.
const manifestPageSize = 200

// fileReader streams a finalized file by walking its manifest in offset order
// and concatenating the referenced storage objects. One block is open at a
// time.
type fileReader struct {
	// ctx is the request context of the stream; the reader never outlives
	// the handler that opened it.
	ctx context.Context

	meta   metadata.Store
	store  storage.Store
	vault  deuce.Vault
	fileID string

	pending   []metadata.FileBlock // fetched assignments not yet streamed
	marker    int64                // offset the next manifest page starts at
	exhausted bool                 // manifest fully fetched

	current io.ReadCloser // block currently streaming
	err     error         // sticky terminal state
}

func newFileReader(ctx context.Context, meta metadata.Store, store storage.Store, vault deuce.Vault, fileID string) *fileReader {
	return &fileReader{
		ctx:    ctx,
		meta:   meta,
		store:  store,
		vault:  vault,
		fileID: fileID,
	}
}

func (r *fileReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	for {
		if r.current != nil {
			n, err := r.current.Read(p)
			if err == io.EOF {
				cerr := r.current.Close()
				r.current = nil
				if cerr != nil {
					r.err = cerr
					return n, cerr
				}
				if n > 0 {
					return n, nil
				}
				continue
			}
			if err != nil {
				r.err = err
			}
			return n, err
		}

		next, ok, err := r.next()
		if err != nil {
			r.err = err
			return 0, err
		}
		if !ok {
			r.err = io.EOF
			return 0, io.EOF
		}

		block, err := r.meta.GetBlock(r.ctx, r.vault, next.BlockID)
		if err != nil {
			r.err = err
			return 0, err
		}
		rc, err := r.store.GetBlock(r.ctx, r.vault, block.StorageID)
		if err != nil {
			r.err = err
			return 0, err
		}
		r.current = rc
	}
}

// next pops the head of the manifest, refilling the page buffer as needed.
// Offsets in a finalized tiling are unique, so the next page resumes at the
// last seen offset plus one.
func (r *fileReader) next() (metadata.FileBlock, bool, error) {
	if len(r.pending) == 0 && !r.exhausted {
		page, err := r.meta.ListFileBlocks(r.ctx, r.vault, r.fileID, r.marker, manifestPageSize)
		if err != nil {
			return metadata.FileBlock{}, false, err
		}
		r.pending = page
		if len(page) < manifestPageSize {
			r.exhausted = true
		} else {
			r.marker = page[len(page)-1].Offset + 1
		}
	}

	if len(r.pending) == 0 {
		return metadata.FileBlock{}, false, nil
	}
	fb := r.pending[0]
	r.pending = r.pending[1:]
	return fb, true, nil
}

func (r *fileReader) Close() error {
	var err error
	if r.current != nil {
		err = r.current.Close()
		r.current = nil
	}
	if r.err == nil || r.err == io.EOF {
		r.err = fs.ErrClosed
	}
	return err
}
