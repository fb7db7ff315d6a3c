package xjson

import (
	"encoding/json"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

// Custom comparator for json.RawMessage that compares semantic equality.
var jsonRawMessageComparer = cmp.Comparer(func(x, y json.RawMessage) bool {
	if len(x) == 0 && len(y) == 0 {
		return true
	}

	if len(x) == 0 || len(y) == 0 {
		return false
	}

	var xVal, yVal interface{}
	if err := json.Unmarshal(x, &xVal); err != nil {
		return false
	}

	if err := json.Unmarshal(y, &yVal); err != nil {
		return false
	}

	return cmp.Equal(xVal, yVal)
})

func Equal(a, b any) bool {
	return cmp.Equal(a, b, jsonRawMessageComparer)
}

// Canonical marshals v into a deterministic JSON encoding: object keys are
// emitted in sorted order at every level, so two semantically equal values
// always produce identical bytes.
func Canonical(v any) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, err
	}

	return json.Marshal(norm)
}

// Hash returns the xxhash64 digest of the canonical encoding of v, as a
// fixed-width hex string. Used as the published content hash.
func Hash(v any) (string, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", err
	}

	return hexDigest(xxhash.Sum64(b)), nil
}

func hexDigest(sum uint64) string {
	const hextable = "0123456789abcdef"

	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hextable[sum&0xf]
		sum >>= 4
	}

	return string(buf)
}

// normalize round-trips v through encoding/json so the canonical marshal
// sees only maps, slices and scalars. Map keys sort deterministically via
// encoding/json's own sorted map iteration; nested raw messages decode too.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// SortedKeys returns the keys of m in sorted order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
