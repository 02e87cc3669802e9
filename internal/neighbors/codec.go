package neighbors

import (
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"github.com/zkplatoon/platoon/pkg/core"
)

// Encode renders m as JSON. Keys are sorted, so equal maps encode identically.
func Encode(m core.NeighborMap) ([]byte, error) {
	if m == nil {
		m = core.NeighborMap{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode neighbor map: %w", err)
	}
	return raw, nil
}

// Decode parses a stored snapshot. JSON null decodes to an empty map.
func Decode(raw []byte) (core.NeighborMap, error) {
	var m core.NeighborMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m == nil {
		m = core.NeighborMap{}
	}
	return m, nil
}

// Digest returns the base58 BLAKE2b-256 of the canonical encoding of m.
// The proof generator compares it to detect a stale map.
func Digest(m core.NeighborMap) (string, error) {
	raw, err := Encode(m)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(raw)
	return base58.Encode(sum[:]), nil
}
