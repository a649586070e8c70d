package sqlite

// GORM row types for the SQLite schema. Every table is keyed by the owning
// project and vault so tenants never see each other's rows. The offset column
// is named byte_offset because OFFSET is a reserved word in SQL.

// vaultRow marks a vault's existence.
type vaultRow struct {
	ProjectID string `gorm:"primaryKey;size:256"`
	VaultID   string `gorm:"primaryKey;size:128"`
	CreatedAt int64  `gorm:"not null"`
}

func (vaultRow) TableName() string { return "vaults" }

// blockRow is a registered block's live binding.
type blockRow struct {
	ProjectID string `gorm:"primaryKey;size:256;uniqueIndex:idx_blocks_storage"`
	VaultID   string `gorm:"primaryKey;size:128;uniqueIndex:idx_blocks_storage"`
	BlockID   string `gorm:"primaryKey;size:40"`
	StorageID string `gorm:"not null;size:80;uniqueIndex:idx_blocks_storage"`
	Size      int64  `gorm:"not null"`
	Invalid   bool   `gorm:"not null;default:false"`
	RefTime   int64  `gorm:"not null"`
}

func (blockRow) TableName() string { return "blocks" }

// refRow is a block's reference counter. It is kept apart from blockRow so
// counters survive when a block is unregistered and re-registered later.
type refRow struct {
	ProjectID string `gorm:"primaryKey;size:256"`
	VaultID   string `gorm:"primaryKey;size:128"`
	BlockID   string `gorm:"primaryKey;size:40"`
	Count     int64  `gorm:"not null;column:ref_count"`
}

func (refRow) TableName() string { return "block_refs" }

// fileRow is a file's finalization state.
type fileRow struct {
	ProjectID string `gorm:"primaryKey;size:256"`
	VaultID   string `gorm:"primaryKey;size:128"`
	FileID    string `gorm:"primaryKey;size:36"`
	Finalized bool   `gorm:"not null;default:false"`
	Size      int64  `gorm:"not null;default:0"`
}

func (fileRow) TableName() string { return "files" }

// assignmentRow is one row of a file's block manifest.
type assignmentRow struct {
	ProjectID string `gorm:"primaryKey;size:256"`
	VaultID   string `gorm:"primaryKey;size:128"`
	FileID    string `gorm:"primaryKey;size:36"`
	Offset    int64  `gorm:"primaryKey;autoIncrement:false;column:byte_offset"`
	BlockID   string `gorm:"primaryKey;size:40"`
	Size      *int64
}

func (assignmentRow) TableName() string { return "file_blocks" }

// allModels returns every model for AutoMigrate.
func allModels() []any {
	return []any{
		&vaultRow{},
		&blockRow{},
		&refRow{},
		&fileRow{},
		&assignmentRow{},
	}
}
