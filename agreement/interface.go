package agreement

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FederationLedger is the passive on-chain contract the coordinator
// reads and writes through. It is the single source of truth for
// proposal/signature/processed state: every flag is monotone (once set,
// never reset) and the contract rejects a second transition, which is
// what makes queue redelivery safe for the coordinator.
type FederationLedger interface {
	// GetTransactionId asks the contract for its derivation of the
	// cross-chain transaction id, so the coordinator can cross-check
	// its local derivation before moving value.
	GetTransactionId(t *CrossChainTransfer) (common.Hash, error)

	// Reads, all keyed by the cross-chain transaction id.
	IsProposed(id common.Hash) (bool, error)
	IsSigned(id common.Hash, member common.Address) (bool, error)
	IsProcessed(id common.Hash) (bool, error)
	GetSignatureCount(id common.Hash) (int, error)
	GetSignatures(id common.Hash) (*SignaturePackage, error)

	// GetMemberIndex returns this federator's position in the signing
	// order, or an error if the address is not a federation member.
	GetMemberIndex(member common.Address) (int, error)

	// GetTokenLimit returns the per-transfer cap for a token, used by
	// the limits cache. Approximate freshness is acceptable.
	GetTokenLimit(token common.Address) (*big.Int, error)

	// Writes, restricted to federation members.
	SendTransactionProposal(id common.Hash, txHex string) error
	UpdateSignatureState(id common.Hash, member common.Address, signature string) error
	UpdateTransactionState(id common.Hash) error

	// VoteTransaction is the EVM-side destination push: it casts this
	// federator's vote to mint/release value for the given transfer.
	VoteTransaction(transfer *CrossChainTransfer, id common.Hash) error

	// IsTxConfirmed applies the EVM chain's confirmation policy to the
	// block that contained txHash.
	IsTxConfirmed(txHash common.Hash) (bool, error)
}

// WalletService is the custodial sidechain wallet the coordinator
// drives over HTTP. All calls block; the concrete client retries
// readiness internally with a bounded budget.
type WalletService interface {
	EnsureReady(kind WalletKind) (bool, error)
	GetAddress(kind WalletKind) (string, error)
	GetMultisigAddress() (string, error)
	CreateMintProposal(address string, amount *big.Int, token string) (string, error)
	GetMySignature(txHex string) (string, error)
	SignAndPush(txHex string, signatures []string) error
	SendTx(outputs []SidechainUtxo) error
	GetHistory(limit int) ([]SidechainTransaction, error)
}

// WalletKind selects one of the two logical wallets the service hosts.
type WalletKind string

const (
	WalletSingle   WalletKind = "single"
	WalletMultisig WalletKind = "multisig"
)
