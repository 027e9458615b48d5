// Package integrity provides content addressing for append-only ledger records.
//
// Each appended record stores the hash of its predecessor and its own chain
// hash, so rewriting any historical row breaks every hash after it.
package integrity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// GenesisHash is the predecessor hash of the first record in a chain.
const GenesisHash = ""

// CanonicalJSON produces deterministic JSON: object keys sorted, no
// insignificant whitespace, numbers kept verbatim.
func CanonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	// encoding/json writes map keys in sorted order.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(raw); err != nil {
		return nil, fmt.Errorf("encode canonical: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ContentHash returns the hex SHA-256 of the canonical form of v.
func ContentHash(v any) (string, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ChainHash links payload v to its predecessor.
func ChainHash(v any, prevHash string) (string, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write([]byte{':'})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Link is one stored record as seen by Verify.
type Link struct {
	ID       int64
	Payload  any
	PrevHash string
	Hash     string
}

// BreakError identifies the first record whose hashes do not check out.
type BreakError struct {
	ID     int64
	Reason string
}

func (e *BreakError) Error() string {
	return fmt.Sprintf("hash chain broken at record %d: %s", e.ID, e.Reason)
}

// Verify walks links in append order and recomputes every chain hash.
func Verify(links []Link) error {
	prev := GenesisHash
	for _, l := range links {
		if l.PrevHash != prev {
			return &BreakError{ID: l.ID, Reason: "previous hash does not match predecessor"}
		}
		want, err := ChainHash(l.Payload, l.PrevHash)
		if err != nil {
			return fmt.Errorf("hash record %d: %w", l.ID, err)
		}
		if want != l.Hash {
			return &BreakError{ID: l.ID, Reason: "content hash does not match payload"}
		}
		prev = l.Hash
	}
	return nil
}
