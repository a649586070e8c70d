package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/files"
	"github.com/painterjd/deuce/pkg/metrics"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// FileHandler handles the file manifest endpoints.
type FileHandler struct {
	files    *files.Service
	maxLimit int
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(svc *files.Service, maxLimit int) *FileHandler {
	return &FileHandler{files: svc, maxLimit: maxLimit}
}

// assignBlocksRequest is the POST /files/{fileID} assignment body:
//
//	{"blocks": [{"id": "<sha1>", "offset": 0}, ...]}
type assignBlocksRequest struct {
	Blocks []assignmentEntry `json:"blocks"`
}

type assignmentEntry struct {
	ID     string `json:"id"`
	Offset int64  `json:"offset"`
}

// assignmentPair is one element of the POST /files/{fileID}/blocks body,
// which assigns blocks as bare pairs:
//
//	[["<sha1>", 0], ["<sha1>", 32768], ...]
type assignmentPair struct {
	ID     string
	Offset int64
}

func (p *assignmentPair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return errors.New("assignment must be a [block_id, offset] pair")
	}
	if err := json.Unmarshal(raw[0], &p.ID); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Offset)
}

// Create handles POST /v1.0/vaults/{vaultID}/files. The file ID is
// server-minted; the Location header points at the new file.
func (h *FileHandler) Create(w http.ResponseWriter, r *http.Request) {
	vault := vaultFromRequest(r, chi.URLParam(r, "vaultID"))

	fileID, err := h.files.Create(r.Context(), vault)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Location", requestURL(r)+"/"+fileID)
	w.WriteHeader(http.StatusCreated)
}

// List handles GET /v1.0/vaults/{vaultID}/files. Only finalized files are
// listed; open manifests stay private to their uploader.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := pageLimit(r, h.maxLimit)
	marker := r.URL.Query().Get("marker")

	vault := vaultFromRequest(r, chi.URLParam(r, "vaultID"))
	ids, err := h.files.List(r.Context(), vault, marker, limit+1)
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

// Open handles GET /v1.0/vaults/{vaultID}/files/{fileID}, streaming the
// file's blocks in offset order. Unfinalized files fail with 412.
func (h *FileHandler) Open(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if !deuce.ValidFileID(fileID) {
		NotFound(w, "File not found")
		return
	}

	vault := vaultFromRequest(r, chi.URLParam(r, "vaultID"))
	file, reader, err := h.files.Open(r.Context(), vault, fileID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer func() { _ = reader.Close() }()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.WriteHeader(http.StatusOK)
	streamBody(w, reader)
}

// Modify handles POST /v1.0/vaults/{vaultID}/files/{fileID}. An empty body
// finalizes the file at the length declared in X-File-Length; a JSON body
// assigns blocks and answers with the IDs not yet registered in the vault.
func (h *FileHandler) Modify(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if !deuce.ValidFileID(fileID) {
		NotFound(w, "File not found")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		BadRequestBody(w, "Unable to read request body")
		return
	}

	vault := vaultFromRequest(r, chi.URLParam(r, "vaultID"))
	if len(body) == 0 {
		h.finalize(w, r, vault, fileID)
		return
	}

	var req assignBlocksRequest
	if err := json.Unmarshal(body, &req); err != nil {
		BadRequestBody(w, "Invalid request body")
		return
	}

	assignments := make([]metadata.Assignment, len(req.Blocks))
	for i, b := range req.Blocks {
		if !deuce.ValidBlockID(b.ID) {
			BadRequestBody(w, "Invalid block id in request body")
			return
		}
		if b.Offset < 0 {
			BadRequestBody(w, "Invalid offset in request body")
			return
		}
		assignments[i] = metadata.Assignment{BlockID: b.ID, Offset: b.Offset}
	}

	missing, err := h.files.Assign(r.Context(), vault, fileID, assignments)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if missing == nil {
		missing = []string{}
	}

	WriteJSONOK(w, missing)
}

func (h *FileHandler) finalize(w http.ResponseWriter, r *http.Request, vault deuce.Vault, fileID string) {
	lengthHeader := r.Header.Get(HeaderFileLength)
	if lengthHeader == "" {
		BadRequest(w, "X-File-Length header is required to finalize")
		return
	}
	size, err := strconv.ParseInt(lengthHeader, 10, 64)
	if err != nil || size < 0 {
		BadRequest(w, "Invalid X-File-Length header")
		return
	}

	if err := h.files.Finalize(r.Context(), vault, fileID, size); err != nil {
		metrics.RecordFinalize(finalizeOutcome(err))
		respondError(w, r, err)
		return
	}

	metrics.RecordFinalize(metrics.FinalizeOK)
	w.WriteHeader(http.StatusOK)
}

func finalizeOutcome(err error) string {
	var gap *metadata.GapError
	var overlap *metadata.OverlapError
	switch {
	case errors.As(err, &gap):
		return metrics.FinalizeGap
	case errors.As(err, &overlap):
		return metrics.FinalizeOverlap
	default:
		return metrics.FinalizeError
	}
}

// Delete handles DELETE /v1.0/vaults/{vaultID}/files/{fileID}. Works on
// finalized and unfinalized files alike and releases the block references
// the manifest held.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if !deuce.ValidFileID(fileID) {
		NotFound(w, "File not found")
		return
	}

	vault := vaultFromRequest(r, chi.URLParam(r, "vaultID"))
	if err := h.files.Delete(r.Context(), vault, fileID); err != nil {
		respondError(w, r, err)
		return
	}

	WriteNoContent(w)
}

// ListBlocks handles GET /v1.0/vaults/{vaultID}/files/{fileID}/blocks. The
// body is the manifest as [block_id, offset] pairs in offset order; the
// marker is a byte offset rather than an ID.
func (h *FileHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if !deuce.ValidFileID(fileID) {
		NotFound(w, "File not found")
		return
	}

	limit := pageLimit(r, h.maxLimit)
	marker, err := strconv.ParseInt(r.URL.Query().Get("marker"), 10, 64)
	if err != nil || marker < 0 {
		marker = 0
	}

	vault := vaultFromRequest(r, chi.URLParam(r, "vaultID"))
	fbs, err := h.files.ListBlocks(r.Context(), vault, fileID, marker, limit+1)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if len(fbs) == limit+1 {
		next := fbs[len(fbs)-1].Offset
		fbs = fbs[:len(fbs)-1]
		w.Header().Set(HeaderNextBatch, nextBatchURL(r, strconv.FormatInt(next, 10), limit))
	}

	pairs := make([][]any, len(fbs))
	for i, fb := range fbs {
		pairs[i] = []any{fb.BlockID, fb.Offset}
	}

	WriteJSONOK(w, pairs)
}

// AssignBlocks handles POST /v1.0/vaults/{vaultID}/files/{fileID}/blocks,
// the pair-array form of block assignment. Answers like Modify: a JSON
// array of the assigned IDs that have no registered block yet.
func (h *FileHandler) AssignBlocks(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if !deuce.ValidFileID(fileID) {
		NotFound(w, "File not found")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		BadRequestBody(w, "Unable to read request body")
		return
	}

	var pairs []assignmentPair
	if err := json.Unmarshal(body, &pairs); err != nil {
		BadRequestBody(w, "Invalid request body")
		return
	}

	assignments := make([]metadata.Assignment, len(pairs))
	for i, p := range pairs {
		if !deuce.ValidBlockID(p.ID) {
			BadRequestBody(w, "Invalid block id in request body")
			return
		}
		if p.Offset < 0 {
			BadRequestBody(w, "Invalid offset in request body")
			return
		}
		assignments[i] = metadata.Assignment{BlockID: p.ID, Offset: p.Offset}
	}

	vault := vaultFromRequest(r, chi.URLParam(r, "vaultID"))
	missing, err := h.files.Assign(r.Context(), vault, fileID, assignments)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if missing == nil {
		missing = []string{}
	}

	WriteJSONOK(w, missing)
}
