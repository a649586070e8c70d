package handlers

// Wire header names. Go emits these in canonical form; the protocol is
// case-insensitive either way.
const (
	HeaderProjectID     = "X-Project-Id"
	HeaderTransactionID = "Transaction-Id"
	HeaderBlockID       = "X-Block-ID"
	HeaderStorageID     = "X-Storage-ID"
	HeaderRefCount      = "X-Block-Reference-Count"
	HeaderRefModified   = "X-Ref-Modified"
	HeaderBlockOrphaned = "X-Block-Orphaned"
	HeaderBlockSize     = "X-Block-Size"
	HeaderFileLength    = "X-File-Length"
	HeaderNextBatch     = "X-Next-Batch"
	HeaderBlockLocation = "X-Block-Location"
)
