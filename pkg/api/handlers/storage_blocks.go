package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/pkg/blocks"
	"github.com/painterjd/deuce/pkg/deuce"
)

// StorageBlockHandler handles the storage-addressed block endpoints. These
// bypass the content-addressed namespace and reach every object the backend
// holds, orphans included; the routes exist for reconciliation tooling.
type StorageBlockHandler struct {
	storage  *blocks.StorageService
	maxLimit int
}

// NewStorageBlockHandler creates a new StorageBlockHandler.
func NewStorageBlockHandler(svc *blocks.StorageService, maxLimit int) *StorageBlockHandler {
	return &StorageBlockHandler{storage: svc, maxLimit: maxLimit}
}

// Head handles HEAD /v1.0/vaults/{vaultID}/storage/blocks/{storageID}.
func (h *StorageBlockHandler) Head(w http.ResponseWriter, r *http.Request) {
	storageID := chi.URLParam(r, "storageID")
	if !deuce.ValidStorageID(storageID) {
		NotFound(w, "Storage object not found")
		return
	}

	info, err := h.storage.Head(r.Context(), vaultFromRequest(r, chi.URLParam(r, "vaultID")), storageID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	setStorageHeaders(w, info)
	WriteNoContent(w)
}

// Get handles GET /v1.0/vaults/{vaultID}/storage/blocks/{storageID}.
// Orphans are readable here; only the content-addressed API hides them.
func (h *StorageBlockHandler) Get(w http.ResponseWriter, r *http.Request) {
	storageID := chi.URLParam(r, "storageID")
	if !deuce.ValidStorageID(storageID) {
		NotFound(w, "Storage object not found")
		return
	}

	info, reader, err := h.storage.Get(r.Context(), vaultFromRequest(r, chi.URLParam(r, "vaultID")), storageID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer func() { _ = reader.Close() }()

	setStorageHeaders(w, info)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	streamBody(w, reader)
}

// Delete handles DELETE /v1.0/vaults/{vaultID}/storage/blocks/{storageID}.
// Only orphans may be reclaimed; deleting a live object is refused with 409.
func (h *StorageBlockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	storageID := chi.URLParam(r, "storageID")
	if !deuce.ValidStorageID(storageID) {
		NotFound(w, "Storage object not found")
		return
	}

	if err := h.storage.Delete(r.Context(), vaultFromRequest(r, chi.URLParam(r, "vaultID")), storageID); err != nil {
		respondError(w, r, err)
		return
	}

	logger.InfoCtx(r.Context(), "Storage object deleted", "storage_id", storageID)
	WriteNoContent(w)
}

// NotAllowed handles PUT /v1.0/vaults/{vaultID}/storage/blocks/{storageID}.
//
// Storage access is read-only plus delete. Uploads must go through the
// content-addressed route so the hash check cannot be bypassed;
// X-Block-Location points there.
func (h *StorageBlockHandler) NotAllowed(w http.ResponseWriter, r *http.Request) {
	location := strings.Replace(requestURL(r), "/storage/blocks", "/blocks", 1)

	w.Header().Set("Allow", "HEAD, GET, DELETE")
	w.Header().Set(HeaderBlockLocation, location)
	MethodNotAllowed(w, "This is read-only access. Uploads must go to "+location)
}

// List handles GET /v1.0/vaults/{vaultID}/storage/blocks.
// Lists every storage ID in the vault, orphans included.
func (h *StorageBlockHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := pageLimit(r, h.maxLimit)
	marker := r.URL.Query().Get("marker")

	vault := vaultFromRequest(r, chi.URLParam(r, "vaultID"))
	ids, err := h.storage.List(r.Context(), vault, marker, limit+1)
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
