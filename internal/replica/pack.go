package replica

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

const (
	// bundleTargetSize keeps layers around a size registries handle
	// comfortably; pushes stay resumable per layer.
	bundleTargetSize = 5 * 1024 * 1024

	// digestLen is a lowercase-hex SHA-256 digest.
	digestLen = 64
)

// planBundles splits the object set into groups of digests whose
// combined payload size stays near bundleTargetSize. Digests are
// sorted so identical stores always produce identical bundles.
func planBundles(objects map[string][]byte) [][]string {
	digests := make([]string, 0, len(objects))
	for d := range objects {
		digests = append(digests, d)
	}
	sort.Strings(digests)

	var bundles [][]string
	var current []string
	var size int64

	for _, digest := range digests {
		objSize := int64(len(objects[digest]))
		if len(current) > 0 && size+objSize > bundleTargetSize {
			bundles = append(bundles, current)
			current = nil
			size = 0
		}
		current = append(current, digest)
		size += objSize
	}
	if len(current) > 0 {
		bundles = append(bundles, current)
	}
	return bundles
}

// packBundle serializes objects into the layer wire format:
// repeated [digest 64B][length 8B big-endian][payload bytes].
func packBundle(digests []string, objects map[string][]byte) []byte {
	var buf bytes.Buffer
	lenBuf := make([]byte, 8)

	for _, digest := range digests {
		data := objects[digest]
		buf.WriteString(digest)
		binary.BigEndian.PutUint64(lenBuf, uint64(len(data)))
		buf.Write(lenBuf)
		buf.Write(data)
	}
	return buf.Bytes()
}

func unpackBundle(data []byte) (map[string][]byte, error) {
	result := make(map[string][]byte)
	buf := bytes.NewReader(data)
	digestBuf := make([]byte, digestLen)

	for buf.Len() > 0 {
		if _, err := io.ReadFull(buf, digestBuf); err != nil {
			return nil, fmt.Errorf("read digest: %w", err)
		}

		var length uint64
		if err := binary.Read(buf, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("read length: %w", err)
		}
		if length > uint64(buf.Len()) {
			return nil, fmt.Errorf("truncated bundle: object claims %d bytes, %d remain", length, buf.Len())
		}

		blob := make([]byte, length)
		if _, err := io.ReadFull(buf, blob); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		result[string(digestBuf)] = blob
	}
	return result, nil
}
