// Package replica mirrors the payload store to an OCI registry.
//
// Off-chain payloads are the only copy of anchored documents, so the
// store supports push/pull replication to any OCI registry for
// off-site durability. Objects are packed into zstd-compressed image
// layers; the image config labels carry the object inventory.
package replica

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/klauspost/compress/zstd"
	"github.com/sourcegraph/conc/pool"
)

const DefaultConcurrency = 4

const (
	labelObjectCount = "io.chainproof.anchor.objects"
	labelPackedAt    = "io.chainproof.anchor.packed-at"
)

// Authenticator provides registry credentials. A nil Authenticator
// falls back to the system keychain, like Docker.
type Authenticator interface {
	Authenticate(registry string) (username, password string, err error)
}

// Replica replicates store objects to one OCI image ref.
type Replica struct {
	ref         name.Reference
	auth        Authenticator
	concurrency int
	logger      *slog.Logger
}

func New(imageRef string, auth Authenticator, logger *slog.Logger) (*Replica, error) {
	ref, err := name.ParseReference(imageRef, name.WithDefaultTag("latest"))
	if err != nil {
		return nil, fmt.Errorf("invalid replica ref %q: %w", imageRef, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Replica{ref: ref, auth: auth, concurrency: DefaultConcurrency, logger: logger}, nil
}

func (r *Replica) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

func (r *Replica) String() string   { return r.ref.String() }
func (r *Replica) Registry() string { return r.ref.Context().RegistryStr() }

// objectLayer implements v1.Layer over a packed object bundle,
// zstd-compressed for transfer.
type objectLayer struct {
	compressed   []byte
	uncompressed []byte
}

var layerEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))

func newObjectLayer(packed []byte) *objectLayer {
	return &objectLayer{
		compressed:   layerEncoder.EncodeAll(packed, nil),
		uncompressed: packed,
	}
}

func (l *objectLayer) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.compressed))
	return h, err
}

func (l *objectLayer) DiffID() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.uncompressed))
	return h, err
}

func (l *objectLayer) Compressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.compressed)), nil
}

func (l *objectLayer) Uncompressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.uncompressed)), nil
}

func (l *objectLayer) Size() (int64, error)                { return int64(len(l.compressed)), nil }
func (l *objectLayer) MediaType() (types.MediaType, error) { return types.OCILayerZStd, nil }

// Push uploads the given objects, replacing whatever the ref held.
// Objects are immutable and content-keyed, so replacing the image is
// safe: an object present in both old and new images is identical.
func (r *Replica) Push(ctx context.Context, objects map[string][]byte) error {
	bundles := planBundles(objects)
	r.logger.Info("replica push", "ref", r.ref.String(), "objects", len(objects), "layers", len(bundles))

	layers := make([]v1.Layer, 0, len(bundles))
	for _, bundle := range bundles {
		layers = append(layers, newObjectLayer(packBundle(bundle, objects)))
	}

	img := empty.Image
	if len(layers) > 0 {
		var err error
		img, err = mutate.AppendLayers(img, layers...)
		if err != nil {
			return fmt.Errorf("append layers: %w", err)
		}
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return fmt.Errorf("image config: %w", err)
	}
	cfg.Config.Labels = map[string]string{
		labelObjectCount: fmt.Sprintf("%d", len(objects)),
		labelPackedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	img, err = mutate.ConfigFile(img, cfg)
	if err != nil {
		return fmt.Errorf("set image config: %w", err)
	}

	options := append(r.remoteOptions(), remote.WithJobs(r.concurrency))
	_, err = retry(ctx, 3, func() (struct{}, error) {
		return struct{}{}, remote.Write(r.ref, img, options...)
	})
	if err != nil {
		return fmt.Errorf("push to %s: %w", r.ref.String(), err)
	}
	return nil
}

// Pull downloads every replicated object. Layers are fetched in
// parallel; the caller re-stores the objects, which re-verifies each
// digest on the way in.
func (r *Replica) Pull(ctx context.Context) (map[string][]byte, error) {
	img, err := retry(ctx, 3, func() (v1.Image, error) {
		return remote.Image(r.ref, r.remoteOptions()...)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", r.ref.String(), err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, fmt.Errorf("image layers: %w", err)
	}

	r.logger.Info("replica pull", "ref", r.ref.String(), "layers", len(layers))

	var mu sync.Mutex
	objects := make(map[string][]byte)

	p := pool.New().WithMaxGoroutines(r.concurrency).WithContext(ctx).WithCancelOnError()
	for _, layer := range layers {
		p.Go(func(ctx context.Context) error {
			rc, err := layer.Uncompressed()
			if err != nil {
				return fmt.Errorf("open layer: %w", err)
			}
			data, err := io.ReadAll(rc)
			if cerr := rc.Close(); cerr != nil {
				return fmt.Errorf("close layer: %w", cerr)
			}
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}

			unpacked, err := unpackBundle(data)
			if err != nil {
				return fmt.Errorf("unpack layer: %w", err)
			}

			mu.Lock()
			for digest, blob := range unpacked {
				objects[digest] = blob
			}
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("replica pull complete", "objects", len(objects))
	return objects, nil
}

// Inventory fetches only the image config and returns the recorded
// object count without downloading layers.
func (r *Replica) Inventory(ctx context.Context) (int, error) {
	img, err := remote.Image(r.ref, r.remoteOptions()...)
	if err != nil {
		return 0, fmt.Errorf("fetch image %s: %w", r.ref.String(), err)
	}
	cfg, err := img.ConfigFile()
	if err != nil {
		return 0, fmt.Errorf("image config: %w", err)
	}
	var count int
	if raw := cfg.Config.Labels[labelObjectCount]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &count); err != nil {
			return 0, fmt.Errorf("parse object count label %q: %w", raw, err)
		}
	}
	return count, nil
}

func (r *Replica) remoteOptions() []remote.Option {
	if r.auth != nil {
		username, password, err := r.auth.Authenticate(r.Registry())
		if err == nil && username != "" {
			return []remote.Option{remote.WithAuth(&authn.Basic{
				Username: username,
				Password: password,
			})}
		}
	}
	return []remote.Option{remote.WithAuthFromKeychain(authn.DefaultKeychain)}
}

func retry[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := range maxAttempts {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
