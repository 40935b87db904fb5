package broker

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/tokenbridge/federator/agreement"
	"github.com/tokenbridge/federator/common"
	"github.com/tokenbridge/federator/customdata"
)

// signing is the proposal/signature path shared by both broker
// variants. Proposals live on the sidechain multisig wallet either
// way; the variants differ only in the selector they stamp on the
// payloads they publish.
type signing struct {
	ledger   agreement.FederationLedger
	wallet   agreement.WalletService
	member   ethcommon.Address
	selector customdata.BrokerSelector
	chunkLen int
}

func (s *signing) GetSignaturesToPush(proposalId ethcommon.Hash) (*agreement.SignaturePackage, error) {
	return s.ledger.GetSignatures(proposalId)
}

func (s *signing) SignAndPushProposal(txHex string, proposalId ethcommon.Hash, signatures []string) error {
	ready, err := s.wallet.EnsureReady(agreement.WalletMultisig)
	if err != nil {
		return err
	}
	if !ready {
		return ErrWalletNotReady
	}

	if err := s.wallet.SignAndPush(txHex, signatures); err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"id":    proposalId.Hex(),
		"txHex": common.Shorten(txHex, 8),
		"sigs":  len(signatures),
	}).Info("proposal signed and pushed")

	return s.ledger.UpdateTransactionState(proposalId)
}

func (s *signing) SendMySignaturesToProposal(txHex string, targetId ethcommon.Hash) error {
	// Signing twice is a ledger violation; skip early when another
	// delivery of the same proposal already went through.
	signed, err := s.ledger.IsSigned(targetId, s.member)
	if err != nil {
		return err
	}
	if signed {
		logger.WithField("id", targetId.Hex()).Debug("proposal already signed by this federator")
		return nil
	}

	ready, err := s.wallet.EnsureReady(agreement.WalletMultisig)
	if err != nil {
		return err
	}
	if !ready {
		return ErrWalletNotReady
	}

	signature, err := s.wallet.GetMySignature(txHex)
	if err != nil {
		return err
	}

	if err := s.ledger.UpdateSignatureState(targetId, s.member, signature); err != nil {
		return err
	}

	return s.publish(customdata.TagSig, targetId, signature)
}

// publish chunk-encodes a routed payload and broadcasts it as
// custom-data outputs on the sidechain.
func (s *signing) publish(tag string, targetId ethcommon.Hash, body string) error {
	payload := string(s.selector) + common.ByteSliceToPureHexStr(targetId.Bytes()) + body
	outputs, err := customdata.EncodeOutputs(tag, payload, s.chunkLen)
	if err != nil {
		return err
	}
	return s.wallet.SendTx(outputs)
}
