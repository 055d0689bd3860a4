package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalAttachmentStore implements port.AttachmentStore on the local
// filesystem. Storage keys are relative paths under baseDir; Presign
// issues HMAC-signed URLs the HTTP layer verifies before serving.
type LocalAttachmentStore struct {
	baseDir    string
	urlPrefix  string
	signingKey []byte
	logger     *zap.Logger
}

// NewLocalAttachmentStore creates a new LocalAttachmentStore
func NewLocalAttachmentStore(baseDir, urlPrefix string, signingKey []byte, logger *zap.Logger) *LocalAttachmentStore {
	return &LocalAttachmentStore{
		baseDir:    baseDir,
		urlPrefix:  strings.TrimRight(urlPrefix, "/"),
		signingKey: signingKey,
		logger:     logger,
	}
}

// Put stores content under directory and returns the storage key. The
// key embeds a random UUID so concurrent uploads of the same filename
// never collide.
func (s *LocalAttachmentStore) Put(ctx context.Context, content []byte, directory, filename string) (string, error) {
	key := filepath.ToSlash(filepath.Join(directory, uuid.NewString()+"_"+sanitizeFilename(filename)))

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create attachment directory",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write attachment",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Attachment stored",
		zap.String("key", key),
		zap.Int("size", len(content)))

	return key, nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (s *LocalAttachmentStore) Delete(ctx context.Context, storageKey string) error {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(storageKey))
	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(fullPath); err != nil {
		s.logger.Error("Failed to delete attachment",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// Presign returns a time-limited download URL for the object
func (s *LocalAttachmentStore) Presign(storageKey string, ttl time.Duration) (string, error) {
	expires := time.Now().Add(ttl).Unix()
	sig := s.sign(storageKey, expires)
	return fmt.Sprintf("%s/%s?expires=%d&signature=%s", s.urlPrefix, storageKey, expires, sig), nil
}

// Verify checks a presigned URL's signature and expiry
func (s *LocalAttachmentStore) Verify(storageKey string, expires int64, signature string) bool {
	if time.Now().Unix() > expires {
		return false
	}
	expected := s.sign(storageKey, expires)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Open reads the object for serving
func (s *LocalAttachmentStore) Open(storageKey string) ([]byte, error) {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(storageKey))
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

func (s *LocalAttachmentStore) sign(storageKey string, expires int64) string {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(storageKey))
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// validatePath checks that the path is safe and within baseDir
func (s *LocalAttachmentStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}

// sanitizeFilename strips path separators and parent references from an
// uploaded filename before it becomes part of a storage key
func sanitizeFilename(name string) string {
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "file"
	}
	return name
}

// Verify interface compliance
var _ port.AttachmentStore = (*LocalAttachmentStore)(nil)
