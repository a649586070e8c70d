package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/pkg/blocks"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/metrics"
	"github.com/painterjd/deuce/pkg/store/storage"
)

// BlockHandler handles the content-addressed block endpoints.
type BlockHandler struct {
	blocks   *blocks.Service
	maxLimit int
	maxBytes int64
}

// NewBlockHandler creates a new BlockHandler. maxBytes caps single-block
// uploads; zero means unlimited.
func NewBlockHandler(svc *blocks.Service, maxLimit int, maxBytes int64) *BlockHandler {
	return &BlockHandler{blocks: svc, maxLimit: maxLimit, maxBytes: maxBytes}
}

// Upload handles PUT /v1.0/vaults/{vaultID}/blocks/{blockID}.
//
// Responds 201 on every successful upload, re-uploads included. The
// X-Storage-ID header names the object written by this request; on a
// re-upload that object is an orphan while the reference headers describe
// the surviving binding.
func (h *BlockHandler) Upload(w http.ResponseWriter, r *http.Request) {
	blockID := chi.URLParam(r, "blockID")
	if !deuce.ValidBlockID(blockID) {
		BadRequest(w, "Invalid block id")
		return
	}
	if h.maxBytes > 0 && r.ContentLength > h.maxBytes {
		RequestEntityTooLarge(w, fmt.Sprintf("Block exceeds the maximum size of %d bytes", h.maxBytes))
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		BadRequestBody(w, "Unable to read request body")
		return
	}
	if h.maxBytes > 0 && int64(len(data)) > h.maxBytes {
		RequestEntityTooLarge(w, fmt.Sprintf("Block exceeds the maximum size of %d bytes", h.maxBytes))
		return
	}
	if r.ContentLength >= 0 && r.ContentLength != int64(len(data)) {
		respondError(w, r, blocks.ErrLengthMismatch)
		return
	}

	result, err := h.blocks.Upload(r.Context(), vaultFromRequest(r, chi.URLParam(r, "vaultID")), blockID, data)
	if err != nil {
		respondError(w, r, err)
		return
	}
	metrics.RecordBlockUpload(1, int64(len(data)))

	w.Header().Set(HeaderBlockID, blockID)
	w.Header().Set(HeaderStorageID, result.StorageID)
	w.Header().Set(HeaderRefCount, strconv.FormatInt(result.Block.RefCount, 10))
	w.Header().Set(HeaderRefModified, strconv.FormatInt(result.Block.RefTime, 10))
	w.WriteHeader(http.StatusCreated)
}

// UploadBatch handles POST /v1.0/vaults/{vaultID}/blocks.
//
// The body is a msgpack map of block ID to raw bytes. Arrays and any other
// top-level shape are rejected. Hashes are validated before anything is
// written, so a mismatch fails the whole batch without partial state.
func (h *BlockHandler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		BadRequestBody(w, "Unable to read request body")
		return
	}

	var batch map[string][]byte
	if err := msgpack.Unmarshal(body, &batch); err != nil {
		BadRequestBody(w, "Request body not well formed")
		return
	}

	entries := make([]storage.Block, 0, len(batch))
	var batchBytes int64
	for blockID, data := range batch {
		if h.maxBytes > 0 && int64(len(data)) > h.maxBytes {
			RequestEntityTooLarge(w, fmt.Sprintf("Block %s exceeds the maximum size of %d bytes", blockID, h.maxBytes))
			return
		}
		entries = append(entries, storage.Block{BlockID: blockID, Data: data})
		batchBytes += int64(len(data))
	}

	vault := vaultFromRequest(r, chi.URLParam(r, "vaultID"))
	if err := h.blocks.UploadBatch(r.Context(), vault, entries); err != nil {
		respondError(w, r, err)
		return
	}
	metrics.RecordBlockUpload(len(entries), batchBytes)

	logger.InfoCtx(r.Context(), "Block batch uploaded", "blocks", len(entries))
	w.WriteHeader(http.StatusCreated)
}

// Get handles GET /v1.0/vaults/{vaultID}/blocks/{blockID}.
func (h *BlockHandler) Get(w http.ResponseWriter, r *http.Request) {
	blockID := chi.URLParam(r, "blockID")
	if !deuce.ValidBlockID(blockID) {
		NotFound(w, "Block not found")
		return
	}

	block, reader, err := h.blocks.Get(r.Context(), vaultFromRequest(r, chi.URLParam(r, "vaultID")), blockID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer func() { _ = reader.Close() }()

	setBlockHeaders(w, block)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(block.Size, 10))
	w.WriteHeader(http.StatusOK)
	streamBody(w, reader)
}

// Head handles HEAD /v1.0/vaults/{vaultID}/blocks/{blockID}.
func (h *BlockHandler) Head(w http.ResponseWriter, r *http.Request) {
	blockID := chi.URLParam(r, "blockID")
	if !deuce.ValidBlockID(blockID) {
		NotFound(w, "Block not found")
		return
	}

	block, err := h.blocks.Head(r.Context(), vaultFromRequest(r, chi.URLParam(r, "vaultID")), blockID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	setBlockHeaders(w, block)
	w.Header().Set(HeaderBlockSize, strconv.FormatInt(block.Size, 10))
	WriteNoContent(w)
}

// Delete handles DELETE /v1.0/vaults/{vaultID}/blocks/{blockID}.
// Refused with 409 while file assignments still reference the block.
func (h *BlockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	blockID := chi.URLParam(r, "blockID")
	if !deuce.ValidBlockID(blockID) {
		NotFound(w, "Block not found")
		return
	}

	if err := h.blocks.Delete(r.Context(), vaultFromRequest(r, chi.URLParam(r, "vaultID")), blockID); err != nil {
		respondError(w, r, err)
		return
	}

	WriteNoContent(w)
}

// List handles GET /v1.0/vaults/{vaultID}/blocks.
func (h *BlockHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := pageLimit(r, h.maxLimit)
	marker := r.URL.Query().Get("marker")

	vault := vaultFromRequest(r, chi.URLParam(r, "vaultID"))
	ids, err := h.blocks.List(r.Context(), vault, marker, limit+1)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if len(ids) == limit+1 {
		next := ids[len(ids)-1]
		ids = ids[:len(ids)-1]
		w.Header().Set(HeaderNextBatch, nextBatchURL(r, next, limit))
	}
	if ids == nil {
		ids = []string{}
	}

	WriteJSONOK(w, ids)
}
