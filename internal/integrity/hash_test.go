package integrity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Amount int64             `json:"amount"`
	Note   string            `json:"note"`
	Tags   map[string]string `json:"tags,omitempty"`
}

func TestCanonicalJSONSortsKeys(t *testing.T) {
	t.Parallel()

	a, err := CanonicalJSON(map[string]any{"b": 1, "a": "<x>", "c": []int{3, 1}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":1,"c":[3,1]}`, string(a))

	b, err := CanonicalJSON(record{Amount: 12345678901234567, Note: "n", Tags: map[string]string{"z": "1", "y": "2"}})
	require.NoError(t, err)
	assert.Equal(t, `{"amount":12345678901234567,"note":"n","tags":{"y":"2","z":"1"}}`, string(b))
}

func TestChainHashDependsOnPredecessor(t *testing.T) {
	t.Parallel()

	r := record{Amount: 100, Note: "dinner"}
	h1, err := ChainHash(r, GenesisHash)
	require.NoError(t, err)
	h2, err := ChainHash(r, GenesisHash)
	require.NoError(t, err)
	h3, err := ChainHash(r, h1)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)

	c1, err := ContentHash(r)
	require.NoError(t, err)
	assert.NotEqual(t, h1, c1)
}

func buildChain(t *testing.T, payloads ...record) []Link {
	t.Helper()
	links := make([]Link, len(payloads))
	prev := GenesisHash
	for i, p := range payloads {
		h, err := ChainHash(p, prev)
		require.NoError(t, err)
		links[i] = Link{ID: int64(i + 1), Payload: p, PrevHash: prev, Hash: h}
		prev = h
	}
	return links
}

func TestVerify(t *testing.T) {
	t.Parallel()

	links := buildChain(t, record{Amount: 1}, record{Amount: 2}, record{Amount: 3})
	require.NoError(t, Verify(links))
	require.NoError(t, Verify(nil))

	tampered := append([]Link(nil), links...)
	tampered[1].Payload = record{Amount: 20}
	err := Verify(tampered)
	var br *BreakError
	require.True(t, errors.As(err, &br))
	assert.Equal(t, int64(2), br.ID)

	dropped := []Link{links[0], links[2]}
	err = Verify(dropped)
	require.True(t, errors.As(err, &br))
	assert.Equal(t, int64(3), br.ID)
}
