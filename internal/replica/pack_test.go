package replica

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chainproof/anchor/internal/store"
)

func testObjects(payloads ...string) map[string][]byte {
	objects := make(map[string][]byte, len(payloads))
	for _, p := range payloads {
		objects[store.Digest([]byte(p))] = []byte(p)
	}
	return objects
}

func TestPackUnpackRoundTrip(t *testing.T) {
	objects := testObjects("first payload", "second", strings.Repeat("third, larger payload ", 100))

	var digests []string
	for d := range objects {
		digests = append(digests, d)
	}

	unpacked, err := unpackBundle(packBundle(digests, objects))
	if err != nil {
		t.Fatalf("unpackBundle: %v", err)
	}

	if len(unpacked) != len(objects) {
		t.Fatalf("unpacked %d objects, want %d", len(unpacked), len(objects))
	}
	for digest, data := range objects {
		if !bytes.Equal(unpacked[digest], data) {
			t.Errorf("object %s differs after round trip", digest)
		}
	}
}

func TestUnpackTruncated(t *testing.T) {
	objects := testObjects("payload that will be cut short")
	var digests []string
	for d := range objects {
		digests = append(digests, d)
	}

	packed := packBundle(digests, objects)
	for _, cut := range []int{len(packed) - 5, digestLen + 4, 10} {
		if _, err := unpackBundle(packed[:cut]); err == nil {
			t.Errorf("unpackBundle accepted bundle truncated to %d bytes", cut)
		}
	}
}

func TestUnpackEmpty(t *testing.T) {
	unpacked, err := unpackBundle(nil)
	if err != nil {
		t.Fatalf("unpackBundle(nil): %v", err)
	}
	if len(unpacked) != 0 {
		t.Errorf("unpacked %d objects from empty bundle", len(unpacked))
	}
}

func TestPlanBundlesDeterministic(t *testing.T) {
	objects := testObjects("a", "b", "c", "d", "e")

	first := planBundles(objects)
	second := planBundles(objects)

	if len(first) != len(second) {
		t.Fatalf("plans differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if strings.Join(first[i], ",") != strings.Join(second[i], ",") {
			t.Errorf("bundle %d differs between runs", i)
		}
	}

	var total int
	for _, bundle := range first {
		total += len(bundle)
	}
	if total != len(objects) {
		t.Errorf("plan covers %d objects, want %d", total, len(objects))
	}
}

func TestPlanBundlesSplitsBySize(t *testing.T) {
	big := strings.Repeat("x", bundleTargetSize/2+1)
	objects := map[string][]byte{
		store.Digest([]byte(big + "1")): []byte(big),
		store.Digest([]byte(big + "2")): []byte(big),
		store.Digest([]byte(big + "3")): []byte(big),
	}

	bundles := planBundles(objects)
	if len(bundles) < 2 {
		t.Errorf("plan packed %d oversized objects into %d bundle(s)", len(objects), len(bundles))
	}
	for i, bundle := range bundles {
		if len(bundle) == 0 {
			t.Errorf("bundle %d is empty", i)
		}
	}
}
