package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for spans. HTTP keys follow OpenTelemetry semantic
// conventions; domain keys carry the "deuce." prefix.
const (
	AttrProjectID     = "deuce.project_id"
	AttrVaultID       = "deuce.vault_id"
	AttrBlockID       = "deuce.block_id"
	AttrStorageID     = "deuce.storage_id"
	AttrFileID        = "deuce.file_id"
	AttrTransactionID = "deuce.transaction_id"
	AttrBlockSize     = "deuce.block_size"
	AttrBlockCount    = "deuce.block_count"
	AttrFileLength    = "deuce.file_length"
	AttrMarker        = "deuce.marker"
	AttrLimit         = "deuce.limit"

	AttrHTTPRoute  = "http.route"
	AttrHTTPMethod = "http.request.method"
	AttrHTTPStatus = "http.response.status_code"
	AttrClientIP   = "client.address"

	AttrStoreType = "store.type"
	AttrBucket    = "storage.bucket"
)

// ProjectID returns an attribute for the tenant project ID
func ProjectID(id string) attribute.KeyValue {
	return attribute.String(AttrProjectID, id)
}

// VaultID returns an attribute for the vault name
func VaultID(id string) attribute.KeyValue {
	return attribute.String(AttrVaultID, id)
}

// BlockID returns an attribute for a content-addressed block ID
func BlockID(id string) attribute.KeyValue {
	return attribute.String(AttrBlockID, id)
}

// StorageID returns an attribute for a storage object ID
func StorageID(id string) attribute.KeyValue {
	return attribute.String(AttrStorageID, id)
}

// FileID returns an attribute for a file ID
func FileID(id string) attribute.KeyValue {
	return attribute.String(AttrFileID, id)
}

// TransactionID returns an attribute for the per-request transaction ID
func TransactionID(id string) attribute.KeyValue {
	return attribute.String(AttrTransactionID, id)
}

// BlockSize returns an attribute for a block payload size in bytes
func BlockSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrBlockSize, size)
}

// BlockCount returns an attribute for a number of blocks
func BlockCount(count int) attribute.KeyValue {
	return attribute.Int(AttrBlockCount, count)
}

// FileLength returns an attribute for a declared file length in bytes
func FileLength(length int64) attribute.KeyValue {
	return attribute.Int64(AttrFileLength, length)
}

// Marker returns an attribute for a pagination marker
func Marker(marker string) attribute.KeyValue {
	return attribute.String(AttrMarker, marker)
}

// Limit returns an attribute for a pagination limit
func Limit(limit int) attribute.KeyValue {
	return attribute.Int(AttrLimit, limit)
}

// HTTPRoute returns an attribute for the matched route template
func HTTPRoute(route string) attribute.KeyValue {
	return attribute.String(AttrHTTPRoute, route)
}

// HTTPMethod returns an attribute for the request method
func HTTPMethod(method string) attribute.KeyValue {
	return attribute.String(AttrHTTPMethod, method)
}

// HTTPStatus returns an attribute for the response status code
func HTTPStatus(status int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, status)
}

// ClientIP returns an attribute for the client address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// StoreType returns an attribute for a backend driver type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// Bucket returns an attribute for an S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StartVaultSpan starts a span for a vault-scoped operation.
// Span names follow the <component>.<operation> format.
func StartVaultSpan(ctx context.Context, operation, projectID, vaultID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ProjectID(projectID),
		VaultID(vaultID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "vaults."+operation, trace.WithAttributes(allAttrs...))
}

// StartBlockSpan starts a span for a block operation.
func StartBlockSpan(ctx context.Context, operation, blockID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	if blockID != "" {
		allAttrs = append(allAttrs, BlockID(blockID))
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "blocks."+operation, trace.WithAttributes(allAttrs...))
}

// StartFileSpan starts a span for a file manifest operation.
func StartFileSpan(ctx context.Context, operation, fileID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		FileID(fileID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "files."+operation, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a backend store operation, e.g.
// "metadata.register_block" or "storage.store_block".
func StartStoreSpan(ctx context.Context, store, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, store+"."+operation, trace.WithAttributes(attrs...))
}
