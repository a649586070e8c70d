package logger

import "log/slog"

// Standard field keys for structured logging. Use these keys consistently
// across all log statements so logs can be aggregated and queried by
// transaction, project, vault or block.
const (
	// Distributed tracing
	KeyTraceID = "trace_id" // OpenTelemetry trace ID
	KeySpanID  = "span_id"  // OpenTelemetry span ID

	// Request identification
	KeyTransactionID = "transaction_id" // per-request transaction ID (echoed to clients)
	KeyProjectID     = "project_id"     // tenant identifier from X-Project-Id
	KeyClientIP      = "client_ip"      // client IP address

	// Domain entities
	KeyVaultID   = "vault_id"
	KeyBlockID   = "block_id"   // SHA-1 content hash
	KeyStorageID = "storage_id" // backend storage object ID
	KeyFileID    = "file_id"

	// Block and file attributes
	KeyOffset   = "offset"
	KeySize     = "size"
	KeyRefCount = "refcount"
	KeyCount    = "count"

	// Listing
	KeyMarker = "marker"
	KeyLimit  = "limit"

	// HTTP
	KeyMethod = "method"
	KeyPath   = "path"
	KeyStatus = "status"

	// Operation metadata
	KeyComponent  = "component"
	KeyDurationMs = "duration_ms"
	KeyError      = "error"

	// Storage backends
	KeyStoreType = "store_type" // memory, badger, sqlite, postgres, fs, s3
	KeyBucket    = "bucket"
	KeyRegion    = "region"
	KeyKey       = "key"
)

// Typed attribute constructors for the most common fields.

// TransactionID returns a slog.Attr for the per-request transaction ID.
func TransactionID(id string) slog.Attr {
	return slog.String(KeyTransactionID, id)
}

// ProjectID returns a slog.Attr for the tenant project ID.
func ProjectID(id string) slog.Attr {
	return slog.String(KeyProjectID, id)
}

// VaultID returns a slog.Attr for a vault ID.
func VaultID(id string) slog.Attr {
	return slog.String(KeyVaultID, id)
}

// BlockID returns a slog.Attr for a block's content hash.
func BlockID(id string) slog.Attr {
	return slog.String(KeyBlockID, id)
}

// StorageID returns a slog.Attr for a storage object ID.
func StorageID(id string) slog.Attr {
	return slog.String(KeyStorageID, id)
}

// FileID returns a slog.Attr for a file ID.
func FileID(id string) slog.Attr {
	return slog.String(KeyFileID, id)
}

// Offset returns a slog.Attr for a byte offset.
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Size returns a slog.Attr for a byte size.
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// RefCount returns a slog.Attr for a block reference count.
func RefCount(n int64) slog.Attr {
	return slog.Int64(KeyRefCount, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error, or an empty Attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Component returns a slog.Attr naming the emitting component.
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// StoreType returns a slog.Attr for a backend driver type.
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}
