package bridge

import (
	"encoding/json"
	"regexp"
	"strings"
)

// The submitter brackets its machine-readable result with these marker
// lines. Everything between them is a JSON object carrying at least
// transactionId.
const (
	resultMarkerStart = "TRANSACTION_RESULT_START"
	resultMarkerEnd   = "TRANSACTION_RESULT_END"
)

// submitterResult is the delimited JSON block the submitter emits on
// success. Fields beyond TransactionID are informational.
type submitterResult struct {
	Success         bool   `json:"success"`
	TransactionID   string `json:"transactionId"`
	ExplorerURL     string `json:"explorerUrl"`
	PayloadSize     int64  `json:"payloadSize"`
	TransactionType string `json:"transactionType"`
}

// Older submitter builds print the ID on a human-readable line instead
// of (or before) the marker block. Kaspa transaction IDs are 64 hex
// chars.
var legacyTxIDPattern = regexp.MustCompile(`(?i)transaction id:?\s*([0-9a-f]{64})`)

// ExtractTransactionID pulls the transaction ID out of raw submitter
// stdout. The delimited JSON block is authoritative; the pattern match
// is a best-effort fallback for alternate output formats and must not
// be relied on across submitter versions.
func ExtractTransactionID(output string) (string, bool) {
	if id, ok := extractFromMarkerBlock(output); ok {
		return id, true
	}
	if m := legacyTxIDPattern.FindStringSubmatch(output); m != nil {
		return strings.ToLower(m[1]), true
	}
	return "", false
}

func extractFromMarkerBlock(output string) (string, bool) {
	start := strings.Index(output, resultMarkerStart)
	if start < 0 {
		return "", false
	}
	rest := output[start+len(resultMarkerStart):]
	end := strings.Index(rest, resultMarkerEnd)
	if end < 0 {
		return "", false
	}

	var parsed submitterResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest[:end])), &parsed); err != nil {
		return "", false
	}
	if parsed.TransactionID == "" {
		return "", false
	}
	return parsed.TransactionID, true
}
