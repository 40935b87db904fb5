package broker

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/tokenbridge/federator/agreement"
	"github.com/tokenbridge/federator/customdata"
	"github.com/tokenbridge/federator/limits"
)

// EvmBroker handles transfers whose origin transaction lives on the
// EVM chain: finality is block confirmations there, and the
// destination push is this federator's vote on the federation
// contract's mint/release entry point.
type EvmBroker struct {
	signing
	limits *limits.Cache
}

var _ Broker = (*EvmBroker)(nil)

func NewEvmBroker(
	ledger agreement.FederationLedger,
	wallet agreement.WalletService,
	member ethcommon.Address,
	limitsCache *limits.Cache,
) *EvmBroker {
	return &EvmBroker{
		signing: signing{
			ledger:   ledger,
			wallet:   wallet,
			member:   member,
			selector: customdata.SelectorEvm,
			chunkLen: customdata.MaxChunkBody,
		},
		limits: limitsCache,
	}
}

func (b *EvmBroker) IsTxConfirmed(txId string) (bool, error) {
	return b.ledger.IsTxConfirmed(ethcommon.HexToHash(txId))
}

func (b *EvmBroker) SendTokensToDestination(transfer *agreement.CrossChainTransfer, id ethcommon.Hash) error {
	ok, err := b.limits.Allows(transfer.OriginalTokenAddress, transfer.Value)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLimitExceeded
	}

	logger.WithFields(logger.Fields{
		"id":       id.Hex(),
		"receiver": transfer.Receiver,
		"value":    transfer.Value,
	}).Info("voting transfer on the federation contract")

	return b.ledger.VoteTransaction(transfer, id)
}
