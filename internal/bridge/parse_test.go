package bridge

import (
	"strings"
	"testing"
)

const otherTxID = "ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00"

func TestExtractFromMarkerBlock(t *testing.T) {
	output := strings.Join([]string{
		"Submitting supply chain event...",
		"TRANSACTION_RESULT_START",
		`{`,
		`  "success": true,`,
		`  "transactionId": "` + testTxID + `",`,
		`  "explorerUrl": "https://kas.fyi/transaction/` + testTxID + `",`,
		`  "payloadSize": 311,`,
		`  "transactionType": "supply_chain_event"`,
		`}`,
		"TRANSACTION_RESULT_END",
		"Done.",
	}, "\n")

	id, ok := ExtractTransactionID(output)
	if !ok {
		t.Fatal("marker block not recognized")
	}
	if id != testTxID {
		t.Errorf("id = %q, want %q", id, testTxID)
	}
}

func TestMarkerBlockTakesPrecedenceOverLegacyLine(t *testing.T) {
	output := strings.Join([]string{
		"Transaction ID: " + otherTxID,
		"TRANSACTION_RESULT_START",
		`{"transactionId": "` + testTxID + `"}`,
		"TRANSACTION_RESULT_END",
	}, "\n")

	id, ok := ExtractTransactionID(output)
	if !ok || id != testTxID {
		t.Errorf("id = %q, ok = %v; marker block must win over the text line", id, ok)
	}
}

func TestLegacyFallback(t *testing.T) {
	cases := []string{
		"Transaction ID: " + testTxID,
		"transaction id " + testTxID,
		"📋 Transaction ID: " + strings.ToUpper(testTxID),
	}
	for _, output := range cases {
		id, ok := ExtractTransactionID(output)
		if !ok {
			t.Errorf("fallback missed %q", output)
			continue
		}
		if id != testTxID {
			t.Errorf("fallback id = %q, want %q", id, testTxID)
		}
	}
}

func TestExtractMalformedMarkerFallsBack(t *testing.T) {
	// Broken JSON inside the markers, but a legacy line earlier.
	output := strings.Join([]string{
		"Transaction ID: " + testTxID,
		"TRANSACTION_RESULT_START",
		`{"transactionId": `,
		"TRANSACTION_RESULT_END",
	}, "\n")

	id, ok := ExtractTransactionID(output)
	if !ok || id != testTxID {
		t.Errorf("id = %q, ok = %v; malformed block should fall back", id, ok)
	}
}

func TestExtractNothing(t *testing.T) {
	cases := []string{
		"",
		"no transaction here",
		"TRANSACTION_RESULT_START\n{}\n", // no end marker
		"Transaction ID: tooshort",
	}
	for _, output := range cases {
		if id, ok := ExtractTransactionID(output); ok {
			t.Errorf("extracted %q from %q", id, output)
		}
	}
}
