package anchor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/chainproof/anchor/internal/bridge"
	"github.com/chainproof/anchor/internal/replica"
	"github.com/chainproof/anchor/internal/store"
)

// Operation modes understood by the external submitter.
const (
	modeSupplyChain = "--supply-chain"
	modeFunding     = "--funding"
	modeQuery       = "--query-transaction"
	modeHelp        = "--help"
)

// Operation labels recording the routing decision, attached to every
// bridge invocation for log correlation.
const (
	labelDirect   = "DIRECT_ON_CHAIN"
	labelOffChain = "OFF_CHAIN_ANCHOR"
	labelFunding  = "FUNDING"
	labelQuery    = "TX_QUERY"
	labelProbe    = "CONNECTION_TEST"
)

// SubmissionResult is the outcome of one ledger submission.
// Re-exported from internal/bridge for convenience.
type SubmissionResult = bridge.Result

// Store is the payload storage contract, re-exported from
// internal/store.
type Store = store.Store

// StoredObject describes one stored payload object.
type StoredObject = store.StoredObject

// StoreStats summarizes store contents.
type StoreStats = store.Stats

// Service is the public entry point: it composes the anchor builder
// and the submission bridge to commit one logical event or funding
// operation to the ledger.
//
// The service guarantees bounded latency per submission but not
// at-most-once delivery: retrying after a timeout may broadcast a
// second transaction. Callers needing exactly-once must track their
// own submission identifiers.
type Service struct {
	store   *store.LocalStore
	builder *Builder
	bridge  *bridge.Bridge
	replica *replica.Replica
	logger  *slog.Logger
}

// Open initializes the payload store under dataDir and returns a
// Service ready to submit.
func Open(dataDir string, opts ...Option) (*Service, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.NewLocalStore(dataDir, options.CacheSize,
		options.CompressionLevel, options.CompressionEnabled, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Service{
		store:   st,
		builder: NewBuilder(st, options.Policy, logger),
		bridge:  bridge.New(options.SubmitterBin, options.SoftTimeout, options.HardTimeout, logger),
		logger:  logger,
	}

	if options.ReplicaRef != "" {
		rep, err := replica.New(options.ReplicaRef, options.Auth, logger)
		if err != nil {
			return nil, err
		}
		rep.SetConcurrency(options.Concurrency)
		s.replica = rep
	}

	return s, nil
}

// Store exposes the payload store for retrieval layers.
func (s *Service) Store() Store { return s.store }

// Builder exposes the anchor builder for callers that pre-route
// events before submission.
func (s *Service) Builder() *Builder { return s.builder }

// SubmitEvent routes one event payload and submits its anchor. Build
// failures (storage I/O, anchor overflow) are returned as errors
// before any process is spawned; submission failures are reported in
// the result.
func (s *Service) SubmitEvent(ctx context.Context, secret string, payload []byte, eventType string) (SubmissionResult, error) {
	a, err := s.builder.Build(ctx, payload, eventType)
	if err != nil {
		return SubmissionResult{}, err
	}
	return s.SubmitAnchor(ctx, secret, a)
}

// SubmitAnchor submits a pre-built anchor. The operation label records
// the routing decision the builder made.
func (s *Service) SubmitAnchor(ctx context.Context, secret string, a *Anchor) (SubmissionResult, error) {
	wire, err := a.Wire()
	if err != nil {
		return SubmissionResult{}, fmt.Errorf("serialize anchor: %w", err)
	}

	label := labelDirect
	if a.Kind == KindIndirect {
		label = labelOffChain
	}

	args := []string{modeSupplyChain, secret, string(wire), a.EventType}
	return s.bridge.Submit(ctx, args, label), nil
}

// SubmitFunding submits a plain value transfer. No payload routing is
// involved.
func (s *Service) SubmitFunding(ctx context.Context, amountKAS float64, recipient string) SubmissionResult {
	args := []string{modeFunding, strconv.FormatFloat(amountKAS, 'f', -1, 64), recipient}
	return s.bridge.Submit(ctx, args, labelFunding)
}

// QueryTransaction asks the submitter for the status of a previously
// broadcast transaction.
func (s *Service) QueryTransaction(ctx context.Context, txID string) SubmissionResult {
	return s.bridge.Submit(ctx, []string{modeQuery, txID}, labelQuery)
}

// TestConnection confirms the submitter binary is reachable and
// executable. Startup/health-check use only, never on the hot path.
func (s *Service) TestConnection(ctx context.Context) bool {
	result := s.bridge.Submit(ctx, []string{modeHelp}, labelProbe)
	return result.Success
}

// PushReplica uploads every stored object to the configured replica.
func (s *Service) PushReplica(ctx context.Context) error {
	if s.replica == nil {
		return ErrNoRemote
	}

	digests, err := s.store.Objects(ctx)
	if err != nil {
		return fmt.Errorf("enumerate store: %w", err)
	}

	objects := make(map[string][]byte, len(digests))
	for _, digest := range digests {
		data, err := s.store.Get(ctx, digest)
		if err != nil {
			return fmt.Errorf("load object %s: %w", digest, err)
		}
		objects[digest] = data
	}

	return s.replica.Push(ctx, objects)
}

// PullReplica downloads replicated objects into the local store. Each
// object is re-stored through Put, which recomputes its digest, so a
// tampered replica object cannot land under a mismatched key.
func (s *Service) PullReplica(ctx context.Context) error {
	if s.replica == nil {
		return ErrNoRemote
	}

	objects, err := s.replica.Pull(ctx)
	if err != nil {
		return err
	}

	for digest, data := range objects {
		obj, err := s.store.Put(ctx, data)
		if err != nil {
			return fmt.Errorf("store object %s: %w", digest, err)
		}
		if obj.Digest != digest {
			s.logger.Warn("replica object digest mismatch, stored under recomputed digest",
				"claimed", digest, "actual", obj.Digest)
		}
	}
	return nil
}
