package anchor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainproof/anchor/internal/store"
)

// Observed operational limits for Kaspa payload transactions: ~100k
// grams of transaction mass, which works out to roughly 20 KB of safe
// payload. The inline threshold defaults lower because direct anchors
// carry the payload base64-encoded inside the JSON envelope, which
// costs a third more than the raw bytes.
const (
	// DefaultHardCeiling is the maximum serialized anchor size the
	// ledger accepts.
	DefaultHardCeiling = 20 * 1024

	// DefaultInlineThreshold is the largest raw payload routed
	// on-chain. 14 KiB base64-encodes to under the ceiling with room
	// for the envelope fields.
	DefaultInlineThreshold = 14 * 1024

	// TargetChunkSize is the chunk size reserved for a future
	// multi-part anchoring scheme. Not used by the current router.
	TargetChunkSize = 15 * 1024
)

// Kind discriminates the two anchor variants. The routing decision is
// made exactly once, at construction; nothing downstream re-inspects
// optional fields to infer it.
type Kind string

const (
	// KindDirect anchors carry the full payload inline on-chain.
	KindDirect Kind = "direct"

	// KindIndirect anchors carry only the payload digest and storage
	// location; the payload lives in the content store.
	KindIndirect Kind = "indirect"
)

// StorageTypeLocalCAS identifies the local content-addressed store in
// indirect anchor metadata.
const StorageTypeLocalCAS = "local-cas"

// Metadata rides along in every anchor for audit purposes.
type Metadata struct {
	OriginalSize int64  `json:"originalSize"`
	StorageType  string `json:"storageType,omitempty"`
}

// Anchor is the on-chain-bound record. Write-once: a changed payload
// is a new digest, hence a new anchor.
type Anchor struct {
	Kind       Kind      `json:"kind"`
	Digest     string    `json:"digest"`
	StorageURI string    `json:"storageUri,omitempty"`
	Payload    []byte    `json:"payload,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	EventType  string    `json:"eventType"`
	Metadata   Metadata  `json:"metadata"`
}

// Wire returns the serialized form submitted to the ledger.
func (a *Anchor) Wire() ([]byte, error) {
	return json.Marshal(a)
}

// Policy holds the routing knobs. Both are explicit configuration,
// never hidden constants.
type Policy struct {
	// InlineThresholdBytes is the largest payload anchored directly
	// on-chain. Inclusive: a payload of exactly this size goes direct.
	InlineThresholdBytes int

	// HardCeilingBytes is the ledger-imposed maximum for the
	// serialized anchor itself.
	HardCeilingBytes int
}

func (p Policy) withDefaults() Policy {
	if p.InlineThresholdBytes <= 0 {
		p.InlineThresholdBytes = DefaultInlineThreshold
	}
	if p.HardCeilingBytes <= 0 {
		p.HardCeilingBytes = DefaultHardCeiling
	}
	return p
}

// Builder routes payloads to direct or indirect anchors under a
// Policy.
type Builder struct {
	store  store.Store
	policy Policy
	logger *slog.Logger
	now    func() time.Time
}

func NewBuilder(st store.Store, policy Policy, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		store:  st,
		policy: policy.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// Build constructs the anchor for one payload. Payloads at or under
// the inline threshold never touch the content store; larger payloads
// are persisted there and only their digest goes on-chain.
//
// The serialized anchor is re-measured after construction. If it still
// exceeds the hard ceiling the build fails with ErrAnchorOverflow: an
// oversized anchor is a configuration defect, not something to
// truncate quietly.
func (b *Builder) Build(ctx context.Context, payload []byte, eventType string) (*Anchor, error) {
	size := int64(len(payload))

	var a *Anchor
	if size <= int64(b.policy.InlineThresholdBytes) {
		a = &Anchor{
			Kind:      KindDirect,
			Digest:    store.Digest(payload),
			Payload:   payload,
			Timestamp: b.now().UTC(),
			EventType: eventType,
			Metadata:  Metadata{OriginalSize: size},
		}
	} else {
		obj, err := b.store.Put(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("store payload: %w", err)
		}
		a = &Anchor{
			Kind:       KindIndirect,
			Digest:     obj.Digest,
			StorageURI: obj.StorageURI,
			Timestamp:  b.now().UTC(),
			EventType:  eventType,
			Metadata: Metadata{
				OriginalSize: size,
				StorageType:  StorageTypeLocalCAS,
			},
		}
	}

	wire, err := a.Wire()
	if err != nil {
		return nil, fmt.Errorf("serialize anchor: %w", err)
	}
	if len(wire) > b.policy.HardCeilingBytes {
		return nil, fmt.Errorf("%w: %s anchor is %d bytes, ceiling %d (inline threshold %d)",
			ErrAnchorOverflow, a.Kind, len(wire), b.policy.HardCeilingBytes, b.policy.InlineThresholdBytes)
	}

	b.logger.Debug("anchor built",
		"kind", a.Kind, "event_type", eventType,
		"payload_bytes", size, "anchor_bytes", len(wire))
	return a, nil
}
