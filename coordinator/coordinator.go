// Coordinator is the event loop of a federator: it drains the wallet
// event queue, classifies each sidechain transaction and drives the
// proposal/signature/broadcast state machine through the brokers.
//
// The coordinator keeps no durable state of its own. Every handler is
// written to be safe against redelivery and reordering; the federation
// ledger's monotone flags are the only memory, so a restart (or a
// second federator handling the same event) cannot double-push value.

package coordinator

import (
	"context"
	"encoding/json"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/tokenbridge/federator/agreement"
	"github.com/tokenbridge/federator/broker"
	"github.com/tokenbridge/federator/common"
	"github.com/tokenbridge/federator/customdata"
	"github.com/tokenbridge/federator/queue"
)

type Config struct {
	// SignatureThreshold is the number of partial signatures a
	// proposal needs before it can be pushed.
	SignatureThreshold int

	// MemberIndex is this federator's position in the signing order.
	// Only federators at or past the threshold position push
	// completed proposals; the rest only contribute signatures.
	MemberIndex int

	// TokenTable maps a sidechain token uid to the original EVM token
	// address. Deposits of unlisted tokens are protocol violations.
	TokenTable map[string]ethcommon.Address

	// NonRetriableErrorPatterns overrides DefaultNonRetriablePatterns.
	NonRetriableErrorPatterns []string
}

type Coordinator struct {
	cfg      *Config
	ledger   agreement.FederationLedger
	brokers  *broker.Brokers
	consumer queue.Consumer
	errs     *errorClassifier
}

func New(cfg *Config, ledger agreement.FederationLedger, brokers *broker.Brokers, consumer queue.Consumer) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		ledger:   ledger,
		brokers:  brokers,
		consumer: consumer,
		errs:     newErrorClassifier(cfg.NonRetriableErrorPatterns),
	}
}

// Run drains the subscription until ctx is cancelled. One message is
// in flight at a time; each handler runs to its ack/nack before the
// next delivery.
func (c *Coordinator) Run(ctx context.Context) error {
	logger.Info("coordinator started")
	defer logger.Info("coordinator stopped")
	return c.consumer.Subscribe(ctx, c.Handle)
}

// Handle processes one queue delivery to its disposition.
func (c *Coordinator) Handle(msg *queue.Message) queue.Disposition {
	if msg.Type != queue.TypeNewTx {
		logger.WithField("type", msg.Type).Debug("ignoring unrelated queue message")
		return queue.Ack
	}

	var tx agreement.SidechainTransaction
	if err := json.Unmarshal(msg.Data, &tx); err != nil {
		logger.WithField("error", err).Warn("dropping queue message with undecodable tx data")
		return queue.Ack
	}

	newLogger := logger.WithField("tx", tx.TxId)

	classified, err := customdata.Classify(&tx)
	if err != nil {
		return c.dispositionFor(err, newLogger)
	}

	switch classified.Kind {
	case customdata.KindNone:
		// not a bridge transaction
		return queue.Ack
	case customdata.KindInboundTransfer:
		return c.handleInbound(&tx, classified.Inbound, newLogger)
	case customdata.KindProposal:
		return c.handleProposal(&tx, classified.Proposal, newLogger)
	case customdata.KindSignature:
		return c.handleSignature(&tx, classified.Signature, newLogger)
	}
	return queue.Ack
}

// handleInbound processes a deposit into the bridge's multisig wallet:
// a sidechain-origin transfer whose destination is the EVM chain. The
// origin confirmation comes from the sidechain, the push goes through
// the EVM-bound broker.
func (c *Coordinator) handleInbound(tx *agreement.SidechainTransaction, in *customdata.InboundTransfer, log *logger.Entry) queue.Disposition {
	tokenAddr, ok := c.cfg.TokenTable[in.Token]
	if !ok {
		log.WithField("token", in.Token).Error("deposit of a token the bridge does not list")
		return queue.Ack
	}

	transfer := &agreement.CrossChainTransfer{
		OriginalTokenAddress: tokenAddr,
		TransactionHash:      common.HexStrToHash(tx.TxId),
		Value:                new(big.Int).SetUint64(in.Value),
		Sender:               in.Sender,
		Receiver:             in.Receiver,
		Flow:                 agreement.FlowMint,
	}
	id := agreement.ComputeTransactionId(transfer)
	log = log.WithField("id", id.Hex())

	// Confirmation is a polling precondition, not a failure: the
	// queue redelivers until the sidechain settles the deposit.
	confirmed, err := c.brokers.Sidechain.IsTxConfirmed(tx.TxId)
	if err != nil {
		return c.dispositionFor(err, log)
	}
	if !confirmed {
		log.Debug("deposit not confirmed yet")
		return queue.Nack
	}

	// The contract must agree on the identity before any value moves.
	ledgerId, err := c.ledger.GetTransactionId(transfer)
	if err != nil {
		return c.dispositionFor(err, log)
	}
	if ledgerId != id {
		return c.dispositionFor(ErrIdentityMismatch, log)
	}

	processed, err := c.ledger.IsProcessed(id)
	if err != nil {
		return c.dispositionFor(err, log)
	}
	if processed {
		log.Debug("transfer already processed, acknowledging replay")
		return queue.Ack
	}

	if err := c.brokers.Evm.SendTokensToDestination(transfer, id); err != nil {
		return c.dispositionFor(err, log)
	}
	if err := c.ledger.UpdateTransactionState(id); err != nil {
		return c.dispositionFor(err, log)
	}

	log.Info("inbound transfer pushed and marked processed")
	return queue.Ack
}

// handleProposal contributes this federator's signature to a freshly
// published proposal, once the sidechain transaction carrying it is
// final. The target id is the cross-chain correlation id, never a
// chain transaction hash, so finality is always a question about the
// carrier.
func (c *Coordinator) handleProposal(tx *agreement.SidechainTransaction, item *customdata.RoutedItem, log *logger.Entry) queue.Disposition {
	log = log.WithFields(logger.Fields{"target": item.TargetId.Hex(), "selector": string(item.Selector)})

	b, err := c.brokers.Select(item.Selector)
	if err != nil {
		return c.dispositionFor(err, log)
	}

	confirmed, err := c.brokers.Sidechain.IsTxConfirmed(tx.TxId)
	if err != nil {
		return c.dispositionFor(err, log)
	}
	if !confirmed {
		log.Debug("proposal's carrier tx not confirmed yet")
		return queue.Nack
	}

	if err := b.SendMySignaturesToProposal(item.Body, item.TargetId); err != nil {
		return c.dispositionFor(err, log)
	}

	log.Info("signature contributed to proposal")
	return queue.Ack
}

// handleSignature watches the signature stream and, for federators at
// or past the threshold position, completes the proposal once enough
// signatures accumulated on the ledger.
func (c *Coordinator) handleSignature(tx *agreement.SidechainTransaction, item *customdata.RoutedItem, log *logger.Entry) queue.Disposition {
	log = log.WithFields(logger.Fields{"target": item.TargetId.Hex(), "selector": string(item.Selector)})

	// Federators before the threshold position never push; for them a
	// signature event is a no-op.
	if c.cfg.MemberIndex+1 < c.cfg.SignatureThreshold {
		log.Debug("below threshold position, not my turn to push")
		return queue.Ack
	}

	b, err := c.brokers.Select(item.Selector)
	if err != nil {
		return c.dispositionFor(err, log)
	}

	confirmed, err := c.brokers.Sidechain.IsTxConfirmed(tx.TxId)
	if err != nil {
		return c.dispositionFor(err, log)
	}
	if !confirmed {
		log.Debug("signature's carrier tx not confirmed yet")
		return queue.Nack
	}

	processed, err := c.ledger.IsProcessed(item.TargetId)
	if err != nil {
		return c.dispositionFor(err, log)
	}
	if processed {
		log.Debug("proposal already pushed, acknowledging replay")
		return queue.Ack
	}

	pkg, err := b.GetSignaturesToPush(item.TargetId)
	if err != nil {
		return c.dispositionFor(err, log)
	}
	if len(pkg.Signatures) < c.cfg.SignatureThreshold {
		log.WithFields(logger.Fields{
			"have": len(pkg.Signatures),
			"need": c.cfg.SignatureThreshold,
		}).Debug("not enough signatures yet")
		return queue.Nack
	}

	if err := b.SignAndPushProposal(pkg.TxHex, item.TargetId, pkg.Signatures); err != nil {
		return c.dispositionFor(err, log)
	}

	log.Info("completed proposal pushed")
	return queue.Ack
}

// dispositionFor applies the error taxonomy: protocol violations are
// acknowledged (they can never succeed) and logged as alerts,
// everything else is optimistically redelivered.
func (c *Coordinator) dispositionFor(err error, log *logger.Entry) queue.Disposition {
	if c.errs.NonRetriable(err) {
		log.WithField("error", err).Error("non-retriable failure, dropping message")
		return queue.Ack
	}
	log.WithField("error", err).Warn("transient failure, message will be redelivered")
	return queue.Nack
}
