package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/pkg/blocks"
	"github.com/painterjd/deuce/pkg/bufpool"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/files"
	"github.com/painterjd/deuce/pkg/store/metadata"
	"github.com/painterjd/deuce/pkg/store/storage"
)

// vaultFromRequest builds the tenant-scoped vault handle. The project header
// is guaranteed non-empty by the RequireProjectID middleware.
func vaultFromRequest(r *http.Request, vaultID string) deuce.Vault {
	return deuce.NewVault(r.Header.Get(HeaderProjectID), vaultID)
}

// streamBody copies a backend reader to the response through a pooled
// buffer. The status line is already written, so a mid-stream failure can
// only drop the connection.
func streamBody(w http.ResponseWriter, reader io.Reader) {
	buf := bufpool.Get(bufpool.DefaultMediumSize)
	defer bufpool.Put(buf)
	_, _ = io.CopyBuffer(w, reader, buf)
}

// respondError translates service and backend failures into the wire error
// taxonomy. Handlers call it on any error they do not map themselves.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var gone *blocks.GoneError
	var referenced *blocks.ReferencedError
	var bound *blocks.BoundError
	var gap *metadata.GapError
	var overlap *metadata.OverlapError

	switch {
	case errors.As(err, &gone):
		setBlockHeaders(w, gone.Block)
		Gone(w, err.Error())
	case errors.As(err, &referenced):
		w.Header().Set(HeaderRefCount, strconv.FormatInt(referenced.RefCount, 10))
		Conflict(w, err.Error())
	case errors.As(err, &bound):
		w.Header().Set(HeaderRefCount, strconv.FormatInt(bound.RefCount, 10))
		Conflict(w, err.Error())
	case errors.As(err, &gap), errors.As(err, &overlap):
		Conflict(w, err.Error())
	case errors.Is(err, blocks.ErrHashMismatch), errors.Is(err, blocks.ErrLengthMismatch):
		PreconditionFailed(w, err.Error())
	case errors.Is(err, files.ErrNotFinalized):
		PreconditionFailed(w, "File not Finalized")
	case errors.Is(err, storage.ErrVaultNotEmpty):
		Conflict(w, "Vault is not empty")
	case errors.Is(err, storage.ErrVaultNotFound), errors.Is(err, storage.ErrBlockNotFound):
		NotFound(w, err.Error())
	case metadata.IsNotFound(err):
		NotFound(w, err.Error())
	case metadata.IsConstraint(err):
		Conflict(w, err.Error())
	case metadata.HasCode(err, metadata.ErrUnavailable):
		ServiceUnavailable(w, err.Error())
	default:
		logger.ErrorCtx(r.Context(), "Request failed", "error", err)
		InternalServerError(w, "Unexpected backend failure")
	}
}

// setBlockHeaders stamps the reference headers of a metadata block record.
func setBlockHeaders(w http.ResponseWriter, block *metadata.Block) {
	w.Header().Set(HeaderBlockID, block.BlockID)
	w.Header().Set(HeaderStorageID, block.StorageID)
	w.Header().Set(HeaderRefCount, strconv.FormatInt(block.RefCount, 10))
	w.Header().Set(HeaderRefModified, strconv.FormatInt(block.RefTime, 10))
}

// setStorageHeaders stamps the headers describing a storage object. Binding
// headers are only present when the object is live.
func setStorageHeaders(w http.ResponseWriter, info *blocks.Info) {
	w.Header().Set(HeaderStorageID, info.StorageID)
	w.Header().Set(HeaderBlockSize, strconv.FormatInt(info.Size, 10))
	w.Header().Set(HeaderRefCount, strconv.FormatInt(info.RefCount, 10))
	if info.Orphaned {
		w.Header().Set(HeaderBlockOrphaned, "True")
		return
	}
	w.Header().Set(HeaderBlockOrphaned, "False")
	w.Header().Set(HeaderBlockID, info.BlockID)
	w.Header().Set(HeaderRefModified, strconv.FormatInt(info.RefTime, 10))
}

// schemeOf reports the URL scheme the client used.
func schemeOf(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// requestURL rebuilds the absolute URL of the request, without its query.
func requestURL(r *http.Request) string {
	u := url.URL{Scheme: schemeOf(r), Host: r.Host, Path: r.URL.Path}
	return u.String()
}

// nextBatchURL rebuilds the request URL with marker and limit set, for the
// X-Next-Batch header.
func nextBatchURL(r *http.Request, marker string, limit int) string {
	q := url.Values{}
	q.Set("marker", marker)
	q.Set("limit", strconv.Itoa(limit))

	u := url.URL{Scheme: schemeOf(r), Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

// pageLimit returns the page size for a listing request. Absent, malformed,
// non-positive and oversized values clamp to the configured maximum.
func pageLimit(r *http.Request, max int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > max {
		return max
	}
	return limit
}
