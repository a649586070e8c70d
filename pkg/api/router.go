package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/pkg/api/auth"
	"github.com/painterjd/deuce/pkg/api/handlers"
	apimw "github.com/painterjd/deuce/pkg/api/middleware"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// Every route except /v1.0/ping and /v1.0/health requires the X-Project-Id
// header; the two probes stay open so orchestrators can poll them without
// tenant credentials. When verifier is non-nil the tenant routes also
// require a bearer token.
func NewRouter(config APIConfig, services Services, verifier *auth.Verifier) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimw.RequestContext)
	r.Use(apimw.Tracing)
	r.Use(requestLogger)
	r.Use(apimw.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	diagnostics := handlers.NewDiagnosticsHandler(services.Vaults)
	vaults := handlers.NewVaultHandler(services.Vaults, config.MaxReturnedNum)
	blocks := handlers.NewBlockHandler(services.Blocks, config.MaxReturnedNum, config.MaxBlockSize.Int64())
	storage := handlers.NewStorageBlockHandler(services.Storage, config.MaxReturnedNum)
	files := handlers.NewFileHandler(services.Files, config.MaxReturnedNum)

	r.Route("/v1.0", func(r chi.Router) {
		r.Get("/ping", diagnostics.Ping)
		r.Get("/health", diagnostics.Health)

		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireProjectID)
			if verifier != nil {
				r.Use(apimw.BearerAuth(verifier))
			}

			r.Get("/", diagnostics.Home)
			r.Get("/vaults", vaults.List)

			r.Route("/vaults/{vaultID}", func(r chi.Router) {
				r.Use(apimw.VaultContext)

				r.Put("/", vaults.Create)
				r.Head("/", vaults.Head)
				r.Get("/", vaults.Stats)
				r.Delete("/", vaults.Delete)

				r.Get("/blocks", blocks.List)
				r.Post("/blocks", blocks.UploadBatch)
				r.Put("/blocks/{blockID}", blocks.Upload)
				r.Get("/blocks/{blockID}", blocks.Get)
				r.Head("/blocks/{blockID}", blocks.Head)
				r.Delete("/blocks/{blockID}", blocks.Delete)

				r.Post("/files", files.Create)
				r.Get("/files", files.List)
				r.Get("/files/{fileID}", files.Open)
				r.Post("/files/{fileID}", files.Modify)
				r.Delete("/files/{fileID}", files.Delete)
				r.Get("/files/{fileID}/blocks", files.ListBlocks)
				r.Post("/files/{fileID}/blocks", files.AssignBlocks)

				r.Get("/storage/blocks", storage.List)
				r.Head("/storage/blocks/{storageID}", storage.Head)
				r.Get("/storage/blocks/{storageID}", storage.Get)
				r.Delete("/storage/blocks/{storageID}", storage.Delete)
				r.Put("/storage/blocks/{storageID}", storage.NotAllowed)
			})
		})
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the internal
// logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//
// Probe endpoints complete at DEBUG so orchestrator polling does not flood
// the access log.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger.DebugCtx(r.Context(), "API request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logFn := logger.InfoCtx
		if isProbePath(r.URL.Path) {
			logFn = logger.DebugCtx
		}
		logFn(r.Context(), "API request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}

func isProbePath(path string) bool {
	return path == "/v1.0/health" || path == "/v1.0/ping"
}
