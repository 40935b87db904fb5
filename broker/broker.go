// Brokers encapsulate "which chain do I check finality on, and where
// do I push value" for the two directions of the bridge. Dispatch is a
// closed two-variant choice driven by the broker selector the
// classifier found; no other string matching picks a broker.

package broker

import (
	"errors"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/tokenbridge/federator/agreement"
	"github.com/tokenbridge/federator/customdata"
)

var (
	// ErrWalletNotReady is the recoverable "retry later" condition
	// after the wallet client's readiness budget ran out.
	ErrWalletNotReady = errors.New("sidechain wallet not ready")

	// ErrLimitExceeded marks a transfer over the token's cap. The cap
	// will not move between redeliveries; the transfer can never pass.
	ErrLimitExceeded = errors.New("transfer exceeds token limit")

	ErrUnknownSelector = errors.New("unknown broker selector")
)

// Broker is the common contract of the two destination-chain variants.
type Broker interface {
	// IsTxConfirmed applies the origin chain's confirmation policy to
	// the transaction the id refers to.
	IsTxConfirmed(txId string) (bool, error)

	// SendTokensToDestination pushes value on the destination chain
	// for a confirmed transfer.
	SendTokensToDestination(transfer *agreement.CrossChainTransfer, id ethcommon.Hash) error

	// GetSignaturesToPush reads the ledger for the proposal hex and
	// the partial signatures collected so far.
	GetSignaturesToPush(proposalId ethcommon.Hash) (*agreement.SignaturePackage, error)

	// SignAndPushProposal completes a proposal with the collected
	// signatures and broadcasts it, then marks it processed.
	SignAndPushProposal(txHex string, proposalId ethcommon.Hash, signatures []string) error

	// SendMySignaturesToProposal contributes this federator's partial
	// signature for a proposal: records it on the ledger and publishes
	// it on the sidechain data channel for the pushing federator.
	SendMySignaturesToProposal(txHex string, targetId ethcommon.Hash) error
}

// Brokers owns both variants and resolves the classifier's selector.
type Brokers struct {
	Evm       *EvmBroker
	Sidechain *SidechainBroker
}

func (b *Brokers) Select(sel customdata.BrokerSelector) (Broker, error) {
	switch sel {
	case customdata.SelectorEvm:
		return b.Evm, nil
	case customdata.SelectorSidechain:
		return b.Sidechain, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSelector, string(sel))
}
