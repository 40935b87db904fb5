package etherman

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	// URL is the JSON-RPC endpoint of the EVM node.
	URL string

	// FederationContractAddress is the deployed federation contract.
	FederationContractAddress common.Address

	// PrivateKey signs federation member transactions.
	PrivateKey *ecdsa.PrivateKey

	// ChainId of the EVM chain, needed for the EIP-155 transactor.
	ChainId *big.Int

	// Confirmations is the block depth after which an EVM transaction
	// counts as final.
	Confirmations uint64
}
