package broker

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/tokenbridge/federator/agreement"
	"github.com/tokenbridge/federator/common"
	"github.com/tokenbridge/federator/customdata"
	"github.com/tokenbridge/federator/limits"
)

// DefaultHistoryDepth bounds how far back the wallet history is
// scanned when checking sidechain finality.
const DefaultHistoryDepth = 50

// SidechainBroker handles transfers whose origin transaction lives on
// the sidechain: finality comes from the sidechain's own consensus
// (observed through the wallet), and the destination push creates a
// multisig mint proposal and publishes it on the data channel for the
// other federators to sign.
type SidechainBroker struct {
	signing
	limits       *limits.Cache
	historyDepth int

	// tokenMap translates an EVM token address to its sidechain token
	// uid. Unmapped tokens fall back to the bare hex of the address.
	tokenMap map[ethcommon.Address]string
}

var _ Broker = (*SidechainBroker)(nil)

func NewSidechainBroker(
	ledger agreement.FederationLedger,
	wallet agreement.WalletService,
	member ethcommon.Address,
	limitsCache *limits.Cache,
	tokenMap map[ethcommon.Address]string,
) *SidechainBroker {
	return &SidechainBroker{
		signing: signing{
			ledger:   ledger,
			wallet:   wallet,
			member:   member,
			selector: customdata.SelectorSidechain,
			chunkLen: customdata.MaxChunkBody,
		},
		limits:       limitsCache,
		historyDepth: DefaultHistoryDepth,
		tokenMap:     tokenMap,
	}
}

// IsTxConfirmed treats a transaction the wallet reports in its settled
// history as final; the wallet only lists transactions its sidechain
// node has accepted past the reorg window.
func (b *SidechainBroker) IsTxConfirmed(txId string) (bool, error) {
	history, err := b.wallet.GetHistory(b.historyDepth)
	if err != nil {
		return false, err
	}
	for _, tx := range history {
		if tx.TxId == txId {
			return true, nil
		}
	}
	return false, nil
}

func (b *SidechainBroker) SendTokensToDestination(transfer *agreement.CrossChainTransfer, id ethcommon.Hash) error {
	ok, err := b.limits.Allows(transfer.OriginalTokenAddress, transfer.Value)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLimitExceeded
	}

	ready, err := b.wallet.EnsureReady(agreement.WalletMultisig)
	if err != nil {
		return err
	}
	if !ready {
		return ErrWalletNotReady
	}

	txHex, err := b.wallet.CreateMintProposal(transfer.Receiver, transfer.Value, b.sidechainToken(transfer.OriginalTokenAddress))
	if err != nil {
		return err
	}

	if err := b.ledger.SendTransactionProposal(id, txHex); err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"id":    id.Hex(),
		"txHex": common.Shorten(txHex, 8),
	}).Info("mint proposal created, publishing for signatures")

	return b.publish(customdata.TagHex, id, txHex)
}

func (b *SidechainBroker) sidechainToken(token ethcommon.Address) string {
	if uid, ok := b.tokenMap[token]; ok {
		return uid
	}
	return common.ByteSliceToPureHexStr(token.Bytes())
}
