package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/vaults"
)

// VaultHandler handles the vault lifecycle endpoints.
type VaultHandler struct {
	vaults   *vaults.Service
	maxLimit int
}

// NewVaultHandler creates a new VaultHandler.
func NewVaultHandler(svc *vaults.Service, maxLimit int) *VaultHandler {
	return &VaultHandler{vaults: svc, maxLimit: maxLimit}
}

// vaultRef is one entry of the vault listing body.
type vaultRef struct {
	URL string `json:"url"`
}

// vaultStatsResponse is the GET vault body: statistics merged from both
// backends, each under its own key.
type vaultStatsResponse struct {
	Metadata metadataStats `json:"metadata"`
	Storage  storageStats  `json:"storage"`
}

type countStat struct {
	Count int64 `json:"count"`
}

type metadataStats struct {
	Files    countStat         `json:"files"`
	Blocks   countStat         `json:"blocks"`
	Internal map[string]string `json:"internal"`
}

type storageStats struct {
	BlockCount int64             `json:"block-count"`
	TotalSize  int64             `json:"total-size"`
	Internal   map[string]string `json:"internal"`
}

// Create handles PUT /v1.0/vaults/{vaultID}.
// Creation is idempotent: re-creating an existing vault succeeds.
func (h *VaultHandler) Create(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	if !deuce.ValidVaultID(vaultID) {
		BadRequest(w, "Invalid vault id")
		return
	}

	if err := h.vaults.Create(r.Context(), vaultFromRequest(r, vaultID)); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Head handles HEAD /v1.0/vaults/{vaultID}.
// The storage backend is authoritative for existence.
func (h *VaultHandler) Head(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	if !deuce.ValidVaultID(vaultID) {
		NotFound(w, "Vault not found")
		return
	}

	exists, err := h.vaults.Exists(r.Context(), vaultFromRequest(r, vaultID))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !exists {
		NotFound(w, "Vault not found")
		return
	}

	WriteNoContent(w)
}

// Stats handles GET /v1.0/vaults/{vaultID}.
func (h *VaultHandler) Stats(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	if !deuce.ValidVaultID(vaultID) {
		NotFound(w, "Vault not found")
		return
	}

	stats, err := h.vaults.Stats(r.Context(), vaultFromRequest(r, vaultID))
	if err != nil {
		respondError(w, r, err)
		return
	}

	WriteJSONOK(w, vaultStatsResponse{
		Metadata: metadataStats{
			Files:    countStat{Count: stats.Metadata.FileCount},
			Blocks:   countStat{Count: stats.Metadata.BlockCount},
			Internal: nonNil(stats.Metadata.Internal),
		},
		Storage: storageStats{
			BlockCount: stats.Storage.BlockCount,
			TotalSize:  stats.Storage.TotalSize,
			Internal:   nonNil(stats.Storage.Internal),
		},
	})
}

// Delete handles DELETE /v1.0/vaults/{vaultID}.
// Refused while the vault still holds storage objects.
func (h *VaultHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	if !deuce.ValidVaultID(vaultID) {
		NotFound(w, "Vault not found")
		return
	}

	if err := h.vaults.Delete(r.Context(), vaultFromRequest(r, vaultID)); err != nil {
		respondError(w, r, err)
		return
	}

	logger.InfoCtx(r.Context(), "Vault deleted", "vault_id", vaultID)
	WriteNoContent(w)
}

// List handles GET /v1.0/vaults.
// The body maps each vault name to its resource URL.
func (h *VaultHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := pageLimit(r, h.maxLimit)
	marker := r.URL.Query().Get("marker")

	names, err := h.vaults.List(r.Context(), r.Header.Get(HeaderProjectID), marker, limit+1)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if len(names) == limit+1 {
		next := names[len(names)-1]
		names = names[:len(names)-1]
		w.Header().Set(HeaderNextBatch, nextBatchURL(r, next, limit))
	}

	base := requestURL(r)
	body := make(map[string]vaultRef, len(names))
	for _, name := range names {
		body[name] = vaultRef{URL: base + "/" + name}
	}

	WriteJSONOK(w, body)
}

// nonNil replaces a nil map with an empty one so the body serializes as {}.
func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
