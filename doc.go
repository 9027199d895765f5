// Package anchor commits supply-chain event records to the Kaspa
// ledger while keeping large payloads off-chain.
//
// Small payloads travel inline in the on-chain record (a "direct"
// anchor). Payloads over the inline threshold are written to a local
// content-addressed store and the chain carries only their SHA-256
// digest and storage location (an "indirect" anchor), so the
// transaction always stays under the ledger's payload ceiling while
// the off-chain copy remains verifiable by content hash.
//
// Actual transaction signing and broadcast is delegated to an external
// submitter binary; Service drives it with bounded timeouts and parses
// its output into typed results.
//
// Basic usage:
//
//	svc, err := anchor.Open("/var/lib/anchor",
//		anchor.WithSubmitter("/usr/local/bin/kaspa-broadcaster"))
//	if err != nil {
//		return err
//	}
//	res, err := svc.SubmitEvent(ctx, mnemonic, payload, "SHIPMENT_RECEIVED")
package anchor
