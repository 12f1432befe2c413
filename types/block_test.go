package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockHashStable(t *testing.T) {
	b := NewBlock(Header{
		ParentHash:      ZeroHash,
		Number:          1,
		TotalDifficulty: 2,
		HasState:        true,
	}, nil, nil)

	h1 := b.Hash()
	h2 := b.Hash()
	require.Equal(t, h1, h2)
	require.False(t, h1.IsZero())
}

func TestBlockHashDistinguishesHeaders(t *testing.T) {
	a := NewBlock(Header{Number: 1, TotalDifficulty: 2}, nil, nil)
	b := NewBlock(Header{Number: 1, TotalDifficulty: 3}, nil, nil)
	require.NotEqual(t, a.Hash(), b.Hash())
}

func TestExportDecodeRoundTrip(t *testing.T) {
	orig := NewBlock(Header{
		ParentHash:      BytesToHash([]byte("parent")),
		Number:          7,
		TotalDifficulty: 42,
		Epoch:           1,
		HasState:        true,
		Miner:           BytesToHash([]byte("miner")),
		Time:            1000,
	}, []*Transaction{{Hash: BytesToHash([]byte("tx1")), Data: []byte("payload")}},
		[]*Receipt{{TxHash: BytesToHash([]byte("tx1")), Status: 1}})

	data := orig.Export()
	decoded, err := DecodeBlock(data)
	require.NoError(t, err)

	require.Equal(t, orig.Hash(), decoded.Hash())
	require.Equal(t, orig.Number(), decoded.Number())
	require.Equal(t, orig.TotalDifficulty(), decoded.TotalDifficulty())
	require.Len(t, decoded.Transactions(), 1)
}

func TestStoreErrorUnwrapsToSentinel(t *testing.T) {
	inner := errInjected
	wrapped := WrapStoreError("put_block", inner)
	require.ErrorIs(t, wrapped, ErrStoreFailure)
}

var errInjected = &testError{"disk full"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
