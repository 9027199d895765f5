package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainproof/anchor/internal/compression"
)

// Raw objects are stored as <digest>.dat; objects whose on-disk form
// is a zstd frame get the extra .zst suffix. The extension is the only
// record of which form a file holds. Payloads are opaque caller bytes
// and may themselves start with a zstd magic, so the content is never
// sniffed.
const (
	objectExt     = ".dat"
	compressedExt = objectExt + ".zst"
)

// LocalStore implements Store on the local filesystem.
type LocalStore struct {
	baseDir string
	cache   *objectCache
	codec   *compression.Codec
	logger  *slog.Logger
}

func NewLocalStore(baseDir string, cacheSize int, compressionLevel int, compressionEnabled bool, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	objectsDir := filepath.Join(baseDir, "objects")
	if err := os.MkdirAll(objectsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create objects dir: %w", err)
	}

	codec, err := compression.NewCodec(compressionLevel, compressionEnabled)
	if err != nil {
		return nil, fmt.Errorf("create codec: %w", err)
	}

	return &LocalStore{
		baseDir: baseDir,
		cache:   newObjectCache(cacheSize),
		codec:   codec,
		logger:  logger,
	}, nil
}

// Put stores payload bytes under their SHA-256 digest. The digest is
// computed over the exact bytes handed in; any compression applies
// only to the on-disk form.
func (s *LocalStore) Put(ctx context.Context, data []byte) (StoredObject, error) {
	digest := Digest(data)

	obj := StoredObject{
		Digest:    digest,
		SizeBytes: int64(len(data)),
	}

	// Content addressing makes the second write of identical bytes a
	// no-op. This is the de-duplication guarantee. Either stored form
	// counts; a store reopened with a different compression setting
	// must not duplicate its objects.
	if existing, _, err := s.find(digest); err == nil {
		s.logger.Debug("object already stored", "digest", digest)
		obj.StorageURI = objectURI(existing)
		return obj, nil
	}

	stored, compressed := s.codec.Encode(data)
	path := s.objectPath(digest)
	if compressed {
		path = s.compressedPath(digest)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return StoredObject{}, fmt.Errorf("create shard dir: %w", err)
	}

	if err := os.WriteFile(path, stored, 0o644); err != nil {
		return StoredObject{}, fmt.Errorf("write object %s: %w", digest, err)
	}

	obj.StorageURI = objectURI(path)
	s.cache.add(digest, data)
	s.logger.Debug("object stored", "digest", digest, "bytes", len(data), "compressed", compressed)
	return obj, nil
}

// Get retrieves payload bytes by digest.
func (s *LocalStore) Get(ctx context.Context, digest string) ([]byte, error) {
	if data, ok := s.cache.get(digest); ok {
		return data, nil
	}

	data, err := s.readObject(digest)
	if err != nil {
		return nil, err
	}

	s.cache.add(digest, data)
	return data, nil
}

// Has checks object existence.
func (s *LocalStore) Has(ctx context.Context, digest string) (bool, error) {
	if s.cache.has(digest) {
		return true, nil
	}
	_, _, err := s.find(digest)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Verify recomputes the object's hash from the bytes on disk. It never
// trusts the cache or any recorded digest, so silent corruption of the
// underlying file is always detected.
func (s *LocalStore) Verify(ctx context.Context, digest string) (bool, error) {
	path, compressed, err := s.find(digest)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("%w: %s", ErrNotFound, digest)
		}
		return false, fmt.Errorf("stat object %s: %w", digest, err)
	}

	stored, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read object %s: %w", digest, err)
	}

	data := stored
	if compressed {
		data, err = s.codec.Decode(stored)
		if err != nil {
			// A stored form that no longer decodes is corruption, which
			// is exactly what Verify exists to report.
			s.logger.Warn("object failed to decode during verify", "digest", digest, "error", err)
			return false, nil
		}
	}

	return Digest(data) == digest, nil
}

// Stats walks the object tree. Failures here never affect the
// read/write path; callers treat the result as best effort.
func (s *LocalStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	objectsDir := filepath.Join(s.baseDir, "objects")

	err := filepath.WalkDir(objectsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isObjectName(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		st.Count++
		st.TotalBytes += info.Size()
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("walk store: %w", err)
	}

	if st.Count > 0 {
		st.AvgBytes = st.TotalBytes / int64(st.Count)
	}
	return st, nil
}

// Objects returns the digest of every stored object. Used by the
// replica layer to enumerate the store.
func (s *LocalStore) Objects(ctx context.Context) ([]string, error) {
	var digests []string
	objectsDir := filepath.Join(s.baseDir, "objects")

	err := filepath.WalkDir(objectsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isObjectName(d.Name()) {
			return nil
		}
		shard := filepath.Base(filepath.Dir(path))
		name := strings.TrimSuffix(d.Name(), compressedExt)
		name = strings.TrimSuffix(name, objectExt)
		digest := shard + name
		if ValidDigest(digest) {
			digests = append(digests, digest)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk store: %w", err)
	}
	return digests, nil
}

// objectPath returns the sharded filesystem path for a raw object.
func (s *LocalStore) objectPath(digest string) string {
	if len(digest) < 2 {
		return filepath.Join(s.baseDir, "objects", digest+objectExt)
	}
	return filepath.Join(s.baseDir, "objects", digest[:2], digest[2:]+objectExt)
}

// compressedPath is objectPath for the zstd-framed form.
func (s *LocalStore) compressedPath(digest string) string {
	return s.objectPath(digest) + ".zst"
}

// find locates the on-disk form of a digest, raw first. A miss on both
// forms surfaces as an os.IsNotExist error.
func (s *LocalStore) find(digest string) (path string, compressed bool, err error) {
	raw := s.objectPath(digest)
	if _, err := os.Stat(raw); err == nil {
		return raw, false, nil
	} else if !os.IsNotExist(err) {
		return "", false, err
	}
	zst := s.compressedPath(digest)
	if _, err := os.Stat(zst); err == nil {
		return zst, true, nil
	} else if !os.IsNotExist(err) {
		return "", false, err
	}
	return "", false, os.ErrNotExist
}

// readObject reads and, when needed, decodes the stored form.
func (s *LocalStore) readObject(digest string) ([]byte, error) {
	path, compressed, err := s.find(digest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, digest)
		}
		return nil, fmt.Errorf("stat object %s: %w", digest, err)
	}

	stored, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", digest, err)
	}
	if !compressed {
		return stored, nil
	}

	data, err := s.codec.Decode(stored)
	if err != nil {
		return nil, fmt.Errorf("decode object %s: %w", digest, err)
	}
	return data, nil
}

func isObjectName(name string) bool {
	return strings.HasSuffix(name, objectExt) || strings.HasSuffix(name, compressedExt)
}

// objectURI is the location recorded in indirect anchors. file:// is
// the only scheme the local store produces; alternative backends keep
// the digest-keyed contract but use their own scheme.
func objectURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + abs
}

// Digest computes the lowercase-hex SHA-256 content digest.
func Digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ValidDigest reports whether s looks like a lowercase-hex SHA-256
// digest. Used to reject path-traversal attempts before any
// filesystem lookup.
func ValidDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
