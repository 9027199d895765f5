package anchor

import (
	"errors"

	"github.com/chainproof/anchor/internal/store"
)

var (
	// ErrNotFound reports a digest absent from the payload store.
	ErrNotFound = store.ErrNotFound

	// ErrAnchorOverflow reports an anchor whose serialized form still
	// exceeds the ledger ceiling after routing. This is a policy
	// misconfiguration (inline threshold too close to the ceiling);
	// the payload is never truncated to fit.
	ErrAnchorOverflow = errors.New("anchor: serialized anchor exceeds ledger ceiling")

	// ErrNoRemote reports a replication operation with no replica ref
	// configured.
	ErrNoRemote = errors.New("anchor: no replica configured")
)
