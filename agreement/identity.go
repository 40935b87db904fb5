package agreement

/*
Cross-chain transaction identity.

Both federators and the on-chain federation contract derive the same
32-byte identifier from the semantic transfer fields. The identifier is
the single correlation key between the two ledgers: a proposal, its
partial signatures and the processed flag are all keyed by it. The byte
layout below must stay in lockstep with the contract's derivation; it is
pinned by fixture vectors in identity_test.go.
*/

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ComputeTransactionId derives the deterministic cross-chain identifier
// of a transfer. Field order is fixed:
//
//	keccak256(token[20] || sender || receiver || value[32] || originTxHash[32] || flow[1])
//
// with value left-padded big-endian to 32 bytes and flow a single byte.
func ComputeTransactionId(t *CrossChainTransfer) common.Hash {
	var value [32]byte
	if t.Value != nil {
		copy(value[:], common.LeftPadBytes(t.Value.Bytes(), 32))
	}

	return crypto.Keccak256Hash(
		t.OriginalTokenAddress.Bytes(),
		[]byte(t.Sender),
		[]byte(t.Receiver),
		value[:],
		t.TransactionHash.Bytes(),
		[]byte{byte(t.Flow)},
	)
}
