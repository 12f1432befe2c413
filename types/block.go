// Package types defines the block and header representation the rest of
// the chain manager operates on, plus the sentinel errors every component
// returns for the error kinds named in the chain's error-handling design.
package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"sync/atomic"
)

// Hash is a 32-byte content identifier, used both for block hashes and for
// the miner identifier attached to a block (accounts/signatures are an
// external collaborator's concern; a miner is just an opaque identity here).
type Hash [32]byte

// ZeroHash is the identifier of "no block"/"no miner", e.g. the parent hash
// of genesis.
var ZeroHash Hash

// String renders the hash as a hex string for logging.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// BytesToHash left-pads or truncates b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > len(h) {
		b = b[len(b)-len(h):]
	}
	copy(h[len(h)-len(b):], b)
	return h
}

// Transaction is an opaque payload identified by hash; execution and
// validation of its contents live outside this module.
type Transaction struct {
	Hash Hash
	Data []byte
}

// Receipt records the outcome of executing a Transaction.
type Receipt struct {
	TxHash Hash
	Status uint64
}

// Header carries every field the chain manager's accessors require. It does
// not carry a state root, bloom filter, or any other EVM-execution detail:
// those belong to the validator collaborator, not to fork choice.
type Header struct {
	ParentHash      Hash
	Number          uint64
	TotalDifficulty uint64
	Epoch           uint64
	HasState        bool
	Miner           Hash
	Time            uint64
}

// Block is the atomic unit the chain manager stores, indexes, and reorgs
// around. A Block's hash is computed lazily from its header and cached;
// Blocks are treated as immutable once constructed.
type Block struct {
	header       Header
	transactions []*Transaction
	receipts     []*Receipt

	hash atomic.Pointer[Hash]
}

// NewBlock builds a Block from a header and its body. The header is copied
// so later mutation of the caller's struct cannot affect the Block.
func NewBlock(header Header, txs []*Transaction, receipts []*Receipt) *Block {
	return &Block{
		header:       header,
		transactions: txs,
		receipts:     receipts,
	}
}

// Hash returns the block's content hash, computing and caching it on first
// use. The hash covers the header only: transactions and receipts are
// reachable through it but are not themselves consensus-critical here.
func (b *Block) Hash() Hash {
	if h := b.hash.Load(); h != nil {
		return *h
	}
	h := hashHeader(&b.header)
	b.hash.Store(&h)
	return h
}

// Number returns the block's height.
func (b *Block) Number() uint64 { return b.header.Number }

// ParentHash returns the hash of the block's parent.
func (b *Block) ParentHash() Hash { return b.header.ParentHash }

// TotalDifficulty returns the cumulative difficulty up to and including
// this block, the quantity fork choice compares.
func (b *Block) TotalDifficulty() uint64 { return b.header.TotalDifficulty }

// Epoch returns the epoch this block belongs to.
func (b *Block) Epoch() uint64 { return b.header.Epoch }

// HasState reports whether the block carries executed state. add_block
// rejects blocks for which this is false.
func (b *Block) HasState() bool { return b.header.HasState }

// Miner returns the identity that produced this block.
func (b *Block) Miner() Hash { return b.header.Miner }

// Time returns the block's declared timestamp.
func (b *Block) Time() uint64 { return b.header.Time }

// Transactions returns the block's transaction list. Callers must not
// mutate the returned slice.
func (b *Block) Transactions() []*Transaction { return b.transactions }

// Receipts returns the block's receipt list. Callers must not mutate the
// returned slice.
func (b *Block) Receipts() []*Receipt { return b.receipts }

// Header returns a copy of the block's header.
func (b *Block) Header() Header { return b.header }

// exportedBlock is the on-the-wire shape Export/Decode agree on. It is
// deliberately flat: the chain manager doesn't own a wire format, it only
// needs one stable enough for its own export/import round trip.
type exportedBlock struct {
	Header       Header
	Transactions []*Transaction
	Receipts     []*Receipt
}

// Export serializes the block to an opaque byte slice. The wire format is
// this module's own concern to pick since binary codecs generally are an
// external collaborator's contract (see DESIGN.md for why gob, not a
// third-party codec, is used here).
func (b *Block) Export() []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(exportedBlock{
		Header:       b.header,
		Transactions: b.transactions,
		Receipts:     b.receipts,
	}); err != nil {
		// gob-encoding a plain struct of fixed-size fields and byte
		// slices cannot fail.
		panic(err)
	}
	return buf.Bytes()
}

// DecodeBlock is the inverse of Export.
func DecodeBlock(data []byte) (*Block, error) {
	var eb exportedBlock
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&eb); err != nil {
		return nil, err
	}
	return NewBlock(eb.Header, eb.Transactions, eb.Receipts), nil
}

// hashHeader computes a deterministic sha256 digest over a header's fields.
// Real proof-of-work/consensus hashing is the consensus engine's concern
// (out of scope); this only needs to be stable and collision-resistant
// enough to serve as a content identifier within this module.
func hashHeader(h *Header) Hash {
	var buf bytes.Buffer
	buf.Write(h.ParentHash[:])
	writeUint64(&buf, h.Number)
	writeUint64(&buf, h.TotalDifficulty)
	writeUint64(&buf, h.Epoch)
	if h.HasState {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.Write(h.Miner[:])
	writeUint64(&buf, h.Time)
	return sha256.Sum256(buf.Bytes())
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
