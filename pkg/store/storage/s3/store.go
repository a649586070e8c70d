// Package s3 provides an S3-backed block storage backend.
//
// Storage objects live under {key_prefix}{project}/{vault}/{storage_id}. A
// zero-byte marker object {key_prefix}{project}/{vault}/.vault records that
// the vault exists, since S3 has no directories. The marker sorts before any
// storage ID and is skipped by listings and stats.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/painterjd/deuce/internal/telemetry"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/storage"
)

// vaultMarker is the object name recording a vault's existence.
const vaultMarker = ".vault"

// Config holds the S3 driver configuration.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string `mapstructure:"bucket"`

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string `mapstructure:"region"`

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string `mapstructure:"endpoint"`

	// KeyPrefix is prepended to all object keys (e.g. "blocks/").
	// Should end with "/" if non-empty.
	KeyPrefix string `mapstructure:"key_prefix"`

	// AccessKey and SecretKey select static credentials. When empty the SDK
	// default credential chain applies.
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`

	// MaxRetries is the maximum number of retry attempts for transient errors.
	MaxRetries int `mapstructure:"max_retries"`

	// ForcePathStyle forces path-style addressing (required for Localstack/MinIO).
	ForcePathStyle bool `mapstructure:"force_path_style"`
}

// Store is an S3-backed implementation of storage.Store.
type Store struct {
	client    *awss3.Client
	bucket    string
	keyPrefix string
	closed    bool
	mu        sync.RWMutex
}

// New creates a new S3 block storage backend with an existing client.
func New(client *awss3.Client, cfg Config) *Store {
	return &Store{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}
}

// NewFromConfig creates a new S3 block storage backend by building an S3
// client from config. This is the preferred constructor when you don't have
// an existing client.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	client := awss3.NewFromConfig(awsCfg, s3Opts...)
	return New(client, cfg), nil
}

// vaultPrefix returns the key prefix holding a vault's objects.
func (s *Store) vaultPrefix(v deuce.Vault) string {
	return s.keyPrefix + v.String() + "/"
}

// blockKey returns the full object key for a storage ID.
func (s *Store) blockKey(v deuce.Vault, storageID string) string {
	return s.vaultPrefix(v) + storageID
}

// markerKey returns the object key of the vault's existence marker.
func (s *Store) markerKey(v deuce.Vault) string {
	return s.vaultPrefix(v) + vaultMarker
}

// checkClosed returns ErrStoreClosed once Close has been called.
func (s *Store) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return storage.ErrStoreClosed
	}
	return nil
}

// headObject reports whether an object key exists.
func (s *Store) headObject(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head object: %w", err)
	}
	return true, nil
}

// requireVault maps a missing vault marker to ErrVaultNotFound.
func (s *Store) requireVault(ctx context.Context, v deuce.Vault) error {
	ok, err := s.headObject(ctx, s.markerKey(v))
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrVaultNotFound
	}
	return nil
}

// CreateVault writes the vault's existence marker.
func (s *Store) CreateVault(ctx context.Context, v deuce.Vault) error {
	if err := s.checkClosed(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.markerKey(v)),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		return fmt.Errorf("s3 put vault marker: %w", err)
	}
	return nil
}

// DeleteVault removes the vault's marker if no storage objects remain.
func (s *Store) DeleteVault(ctx context.Context, v deuce.Vault) error {
	if err := s.checkClosed(); err != nil {
		return err
	}

	if err := s.requireVault(ctx, v); err != nil {
		return err
	}

	// The marker sorts first, so any second key is a storage object.
	page, err := s.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.vaultPrefix(v)),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return fmt.Errorf("s3 list objects: %w", err)
	}
	for _, obj := range page.Contents {
		if aws.ToString(obj.Key) != s.markerKey(v) {
			return storage.ErrVaultNotEmpty
		}
	}

	_, err = s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.markerKey(v)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete vault marker: %w", err)
	}
	return nil
}

// VaultExists reports whether the vault's marker exists.
func (s *Store) VaultExists(ctx context.Context, v deuce.Vault) (bool, error) {
	if err := s.checkClosed(); err != nil {
		return false, err
	}
	return s.headObject(ctx, s.markerKey(v))
}

// VaultStats sums the vault's storage objects.
func (s *Store) VaultStats(ctx context.Context, v deuce.Vault) (*storage.VaultStats, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	if err := s.requireVault(ctx, v); err != nil {
		return nil, err
	}

	stats := &storage.VaultStats{
		Internal: map[string]string{
			"bucket": s.bucket,
			"prefix": s.vaultPrefix(v),
		},
	}

	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.vaultPrefix(v)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if aws.ToString(obj.Key) == s.markerKey(v) {
				continue
			}
			stats.BlockCount++
			stats.TotalSize += aws.ToInt64(obj.Size)
		}
	}
	return stats, nil
}

// ListBlocks lists storage IDs in lexicographic order, resuming at marker
// (inclusive). S3's StartAfter is exclusive, so the marker key is probed
// separately.
func (s *Store) ListBlocks(ctx context.Context, v deuce.Vault, marker string, limit int) ([]string, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	if err := s.requireVault(ctx, v); err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.vaultPrefix(v)),
	}
	if marker != "" {
		ok, err := s.headObject(ctx, s.blockKey(v, marker))
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, marker)
		}
		input.StartAfter = aws.String(s.blockKey(v, marker))
	}

	paginator := awss3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		if limit > 0 && len(ids) >= limit {
			break
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.vaultPrefix(v))
			if key == vaultMarker {
				continue
			}
			ids = append(ids, key)
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
	}
	return ids, nil
}

// StoreBlock writes a new storage object and returns its storage ID.
func (s *Store) StoreBlock(ctx context.Context, v deuce.Vault, blockID string, data io.Reader, size int64) (string, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "s3", "store_block",
		telemetry.BlockID(blockID),
		telemetry.BlockSize(size),
		telemetry.Bucket(s.bucket))
	defer span.End()

	if err := s.checkClosed(); err != nil {
		return "", err
	}

	if err := s.requireVault(ctx, v); err != nil {
		return "", err
	}

	storageID := deuce.NewStorageID(blockID)
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.blockKey(v, storageID)),
		Body:          io.LimitReader(data, size),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return storageID, nil
}

// StoreBlocks writes a batch of blocks and returns their storage IDs in input
// order.
func (s *Store) StoreBlocks(ctx context.Context, v deuce.Vault, blocks []storage.Block) ([]string, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "s3", "store_blocks",
		telemetry.BlockCount(len(blocks)),
		telemetry.Bucket(s.bucket))
	defer span.End()

	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	if err := s.requireVault(ctx, v); err != nil {
		return nil, err
	}

	storageIDs := make([]string, 0, len(blocks))
	for _, b := range blocks {
		storageID := deuce.NewStorageID(b.BlockID)
		_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(s.blockKey(v, storageID)),
			Body:          bytes.NewReader(b.Data),
			ContentLength: aws.Int64(int64(len(b.Data))),
		})
		if err != nil {
			return nil, fmt.Errorf("s3 put object: %w", err)
		}
		storageIDs = append(storageIDs, storageID)
	}
	return storageIDs, nil
}

// BlockExists reports whether a storage object exists.
func (s *Store) BlockExists(ctx context.Context, v deuce.Vault, storageID string) (bool, error) {
	if err := s.checkClosed(); err != nil {
		return false, err
	}

	if err := s.requireVault(ctx, v); err != nil {
		return false, err
	}
	return s.headObject(ctx, s.blockKey(v, storageID))
}

// GetBlock opens a storage object for reading. The response body streams
// straight from S3; the caller must close it.
func (s *Store) GetBlock(ctx context.Context, v deuce.Vault, storageID string) (io.ReadCloser, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "s3", "get_block",
		telemetry.StorageID(storageID),
		telemetry.Bucket(s.bucket))
	defer span.End()

	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	resp, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.blockKey(v, storageID)),
	})
	if err != nil {
		if isNotFoundError(err) {
			if err := s.requireVault(ctx, v); err != nil {
				return nil, err
			}
			return nil, storage.ErrBlockNotFound
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	return resp.Body, nil
}

// BlockSize returns a storage object's length in bytes.
func (s *Store) BlockSize(ctx context.Context, v deuce.Vault, storageID string) (int64, error) {
	if err := s.checkClosed(); err != nil {
		return 0, err
	}

	resp, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.blockKey(v, storageID)),
	})
	if err != nil {
		if isNotFoundError(err) {
			if err := s.requireVault(ctx, v); err != nil {
				return 0, err
			}
			return 0, storage.ErrBlockNotFound
		}
		return 0, fmt.Errorf("s3 head object: %w", err)
	}
	return aws.ToInt64(resp.ContentLength), nil
}

// DeleteBlock removes a storage object.
func (s *Store) DeleteBlock(ctx context.Context, v deuce.Vault, storageID string) error {
	if err := s.checkClosed(); err != nil {
		return err
	}

	// S3 deletes are idempotent, so probe first to honor the contract.
	ok, err := s.headObject(ctx, s.blockKey(v, storageID))
	if err != nil {
		return err
	}
	if !ok {
		if err := s.requireVault(ctx, v); err != nil {
			return err
		}
		return storage.ErrBlockNotFound
	}

	_, err = s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.blockKey(v, storageID)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

// Health verifies the bucket is accessible via HeadBucket.
func (s *Store) Health(ctx context.Context) []string {
	if err := s.checkClosed(); err != nil {
		return []string{fmt.Sprintf("s3 storage backend at bucket %s is not active: %v", s.bucket, err)}
	}

	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return []string{fmt.Sprintf("s3 storage backend at bucket %s is not active: %v", s.bucket, err)}
	}
	return []string{fmt.Sprintf("s3 storage backend at bucket %s is active.", s.bucket)}
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// isNotFoundError checks if an error is an S3 not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "NoSuchKey") ||
		strings.Contains(errStr, "NotFound") ||
		strings.Contains(errStr, "404")
}

// Ensure Store implements storage.Store.
var _ storage.Store = (*Store)(nil)
