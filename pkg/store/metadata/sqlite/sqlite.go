// Package sqlite implements the metadata store on SQLite via GORM. It suits
// single-node deployments that want durable metadata without running a
// database server.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// Config holds the SQLite driver configuration.
type Config struct {
	// Path is the database file. The parent directory is created if missing.
	// Default: $XDG_DATA_HOME/deuce/metadata.db
	Path string `mapstructure:"path"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			homeDir, _ := os.UserHomeDir()
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
		c.Path = filepath.Join(dataDir, "deuce", "metadata.db")
	}
}

// Store is a SQLite-backed metadata store.
type Store struct {
	db   *gorm.DB
	path string
	now  func() int64
}

var _ metadata.Store = (*Store)(nil)

// New opens (or creates) the SQLite database at cfg.Path and migrates the
// schema.
func New(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, metadata.NewIOError("failed to create database directory", err)
	}

	// SQLite pragmas for better concurrent access:
	// - journal_mode(WAL): Write-Ahead Logging for concurrent readers/single writer
	// - busy_timeout(5000): Wait up to 5 seconds when database is locked
	dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, metadata.NewIOError(fmt.Sprintf("failed to open sqlite database at %s", cfg.Path), err)
	}

	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, metadata.NewIOError("failed to run database migration", err)
	}

	return &Store{db: db, path: cfg.Path, now: func() int64 { return time.Now().Unix() }}, nil
}

// Health reports whether the database answers a ping.
func (s *Store) Health(ctx context.Context) []string {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return []string{fmt.Sprintf("sqlite metadata backend at %s is not active: %v", s.path, err)}
	}
	return []string{fmt.Sprintf("sqlite metadata backend at %s is active.", s.path)}
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// ============================================================================
// Internal Helpers
// ============================================================================

// isUniqueConstraintError checks if the error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key value violates unique constraint")
}

// convertNotFoundError converts gorm.ErrRecordNotFound to the domain error.
func convertNotFoundError(err error, notFoundErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}

// requireVault returns a not-found store error when the vault is absent.
func requireVault(tx *gorm.DB, v deuce.Vault) error {
	var row vaultRow
	err := tx.Where("project_id = ? AND vault_id = ?", v.ProjectID, v.VaultID).First(&row).Error
	return convertNotFoundError(err, metadata.NewNotFoundError("vault", v.VaultID))
}

// getRefCount reads a block's reference counter. A missing row is zero.
func getRefCount(tx *gorm.DB, v deuce.Vault, blockID string) (int64, error) {
	var row refRow
	err := tx.Where("project_id = ? AND vault_id = ? AND block_id = ?",
		v.ProjectID, v.VaultID, blockID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Count, nil
}

// incrementRefs applies counter deltas and stamps RefTime on live blocks.
// Counters for unregistered blocks survive so a later registration keeps its
// references; counters at or below zero are removed.
func (s *Store) incrementRefs(tx *gorm.DB, v deuce.Vault, blockIDs []string, delta int64) error {
	now := s.now()
	for _, blockID := range blockIDs {
		count, err := getRefCount(tx, v, blockID)
		if err != nil {
			return err
		}
		count += delta

		if count <= 0 {
			err = tx.Where("project_id = ? AND vault_id = ? AND block_id = ?",
				v.ProjectID, v.VaultID, blockID).Delete(&refRow{}).Error
		} else {
			row := refRow{ProjectID: v.ProjectID, VaultID: v.VaultID, BlockID: blockID, Count: count}
			err = tx.Save(&row).Error
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&blockRow{}).
			Where("project_id = ? AND vault_id = ? AND block_id = ?", v.ProjectID, v.VaultID, blockID).
			Update("ref_time", now).Error; err != nil {
			return err
		}
	}
	return nil
}
