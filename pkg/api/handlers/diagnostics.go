package handlers

import (
	"net/http"

	"github.com/painterjd/deuce/pkg/vaults"
)

// DiagnosticsHandler handles the unauthenticated service endpoints and the
// API home document.
type DiagnosticsHandler struct {
	vaults *vaults.Service
}

// NewDiagnosticsHandler creates a new DiagnosticsHandler.
func NewDiagnosticsHandler(svc *vaults.Service) *DiagnosticsHandler {
	return &DiagnosticsHandler{vaults: svc}
}

// Ping handles GET /v1.0/ping, a liveness probe with no backend contact.
func (h *DiagnosticsHandler) Ping(w http.ResponseWriter, r *http.Request) {
	WriteNoContent(w)
}

// Health handles GET /v1.0/health. The body is a list of component status
// lines; a healthy deployment reports every backend as active.
func (h *DiagnosticsHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, h.vaults.Health(r.Context()))
}

// Home handles GET /v1.0/, answering with the resource templates the API
// exposes so clients can discover routes instead of hard-coding them.
func (h *DiagnosticsHandler) Home(w http.ResponseWriter, r *http.Request) {
	base := schemeOf(r) + "://" + r.Host + "/v1.0"

	WriteJSONOK(w, map[string]string{
		"vaults":         base + "/vaults",
		"vault":          base + "/vaults/{vault_id}",
		"blocks":         base + "/vaults/{vault_id}/blocks",
		"block":          base + "/vaults/{vault_id}/blocks/{block_id}",
		"files":          base + "/vaults/{vault_id}/files",
		"file":           base + "/vaults/{vault_id}/files/{file_id}",
		"file_blocks":    base + "/vaults/{vault_id}/files/{file_id}/blocks",
		"storage_blocks": base + "/vaults/{vault_id}/storage/blocks",
		"storage_block":  base + "/vaults/{vault_id}/storage/blocks/{storage_id}",
		"health":         base + "/health",
		"ping":           base + "/ping",
	})
}
