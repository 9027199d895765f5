package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const serviceTestTxID = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// writeCapturingSubmitter writes a fake broadcaster that records its
// argument vector to argsPath, one argument per line, then emits a
// successful result block.
func writeCapturingSubmitter(t *testing.T, argsPath string) string {
	t.Helper()
	script := `#!/bin/sh
printf '%s\n' "$@" > ` + argsPath + `
echo "TRANSACTION_RESULT_START"
echo "{\"transactionId\": \"` + serviceTestTxID + `\"}"
echo "TRANSACTION_RESULT_END"
`
	bin := filepath.Join(t.TempDir(), "fake-broadcaster")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin
}

func capturedArgs(t *testing.T, argsPath string) []string {
	t.Helper()
	data, err := os.ReadFile(argsPath)
	if err != nil {
		t.Fatalf("read captured args: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestSubmitEventDirect(t *testing.T) {
	argsPath := filepath.Join(t.TempDir(), "args")
	svc, err := Open(t.TempDir(),
		WithSubmitter(writeCapturingSubmitter(t, argsPath)),
		WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	payload := []byte(`{"event":"FARM_HARVEST","batch":"B-1"}`)
	result, err := svc.SubmitEvent(context.Background(), "test mnemonic words", payload, "FARM_HARVEST")
	if err != nil {
		t.Fatalf("SubmitEvent: %v", err)
	}
	if !result.Success || result.TransactionID != serviceTestTxID {
		t.Fatalf("result = %+v", result)
	}

	args := capturedArgs(t, argsPath)
	if len(args) != 4 {
		t.Fatalf("submitter got %d args: %v", len(args), args)
	}
	if args[0] != "--supply-chain" {
		t.Errorf("mode = %q", args[0])
	}
	if args[1] != "test mnemonic words" {
		t.Errorf("secret not passed through")
	}
	if args[3] != "FARM_HARVEST" {
		t.Errorf("event type = %q", args[3])
	}

	var a Anchor
	if err := json.Unmarshal([]byte(args[2]), &a); err != nil {
		t.Fatalf("submitted payload is not an anchor: %v", err)
	}
	if a.Kind != KindDirect {
		t.Errorf("anchor kind = %s, want direct", a.Kind)
	}
	if !bytes.Equal(a.Payload, payload) {
		t.Error("direct anchor payload differs from event payload")
	}
}

func TestSubmitEventOffChain(t *testing.T) {
	argsPath := filepath.Join(t.TempDir(), "args")
	dataDir := t.TempDir()
	svc, err := Open(dataDir,
		WithSubmitter(writeCapturingSubmitter(t, argsPath)),
		WithPolicy(Policy{InlineThresholdBytes: 64, HardCeilingBytes: 20480}),
		WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	payload := bytes.Repeat([]byte("bulk shipment manifest "), 1200)
	result, err := svc.SubmitEvent(ctx, "mnemonic", payload, "SHIPMENT_RECEIVED")
	if err != nil {
		t.Fatalf("SubmitEvent: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	args := capturedArgs(t, argsPath)
	var a Anchor
	if err := json.Unmarshal([]byte(args[2]), &a); err != nil {
		t.Fatalf("submitted payload is not an anchor: %v", err)
	}
	if a.Kind != KindIndirect {
		t.Fatalf("anchor kind = %s, want indirect", a.Kind)
	}
	if len(args[2]) > 1024 {
		t.Errorf("on-chain record is %d bytes for a %d byte payload", len(args[2]), len(payload))
	}

	// The payload must be retrievable from the store by the anchored
	// digest.
	stored, err := svc.Store().Get(ctx, a.Digest)
	if err != nil {
		t.Fatalf("payload not retrievable: %v", err)
	}
	if !bytes.Equal(stored, payload) {
		t.Error("stored payload differs from submitted payload")
	}
}

func TestSubmitEventOverflowDoesNotSpawn(t *testing.T) {
	argsPath := filepath.Join(t.TempDir(), "args")
	svc, err := Open(t.TempDir(),
		WithSubmitter(writeCapturingSubmitter(t, argsPath)),
		WithPolicy(Policy{InlineThresholdBytes: 64, HardCeilingBytes: 80}),
		WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err = svc.SubmitEvent(context.Background(), "mnemonic", bytes.Repeat([]byte("q"), 500), "TOO_BIG")
	if !errors.Is(err, ErrAnchorOverflow) {
		t.Fatalf("err = %v, want ErrAnchorOverflow", err)
	}

	if _, statErr := os.Stat(argsPath); !os.IsNotExist(statErr) {
		t.Error("submitter was spawned despite anchor overflow")
	}
}

func TestSubmitFunding(t *testing.T) {
	argsPath := filepath.Join(t.TempDir(), "args")
	svc, err := Open(t.TempDir(),
		WithSubmitter(writeCapturingSubmitter(t, argsPath)),
		WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	result := svc.SubmitFunding(context.Background(), 0.75, "kaspatest:qp0q4mdtas30e4aeqq0j3dt8nd2nqwjsewg")
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	args := capturedArgs(t, argsPath)
	want := []string{"--funding", "0.75", "kaspatest:qp0q4mdtas30e4aeqq0j3dt8nd2nqwjsewg"}
	if len(args) != len(want) {
		t.Fatalf("args = %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestQueryTransaction(t *testing.T) {
	argsPath := filepath.Join(t.TempDir(), "args")
	svc, err := Open(t.TempDir(),
		WithSubmitter(writeCapturingSubmitter(t, argsPath)),
		WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	result := svc.QueryTransaction(context.Background(), serviceTestTxID)
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	args := capturedArgs(t, argsPath)
	if len(args) != 2 || args[0] != "--query-transaction" || args[1] != serviceTestTxID {
		t.Errorf("args = %v", args)
	}
}

func TestTestConnection(t *testing.T) {
	argsPath := filepath.Join(t.TempDir(), "args")
	svc, err := Open(t.TempDir(),
		WithSubmitter(writeCapturingSubmitter(t, argsPath)),
		WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !svc.TestConnection(context.Background()) {
		t.Error("TestConnection = false for a working submitter")
	}

	broken, err := Open(t.TempDir(),
		WithSubmitter(filepath.Join(t.TempDir(), "missing-binary")),
		WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if broken.TestConnection(context.Background()) {
		t.Error("TestConnection = true for a missing submitter")
	}
}

func TestPushReplicaWithoutRemote(t *testing.T) {
	svc, err := Open(t.TempDir(), WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := svc.PushReplica(context.Background()); !errors.Is(err, ErrNoRemote) {
		t.Errorf("PushReplica err = %v, want ErrNoRemote", err)
	}
	if err := svc.PullReplica(context.Background()); !errors.Is(err, ErrNoRemote) {
		t.Errorf("PullReplica err = %v, want ErrNoRemote", err)
	}
}
