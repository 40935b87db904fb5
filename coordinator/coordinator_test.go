package coordinator

import (
	"context"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenbridge/federator/agreement"
	"github.com/tokenbridge/federator/broker"
	"github.com/tokenbridge/federator/common"
	"github.com/tokenbridge/federator/customdata"
	"github.com/tokenbridge/federator/etherman"
	"github.com/tokenbridge/federator/limits"
	"github.com/tokenbridge/federator/logconfig"
	"github.com/tokenbridge/federator/queue"
	"github.com/tokenbridge/federator/walletclient"
)

var (
	memberAddr = ethcommon.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	tokenAddr  = ethcommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

const (
	tokenUid     = "00c3"
	receiverAddr = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	senderAddr   = "WZhKusv57pTzE45RSEhhqYqWEfxNZCXWdj"
)

type fixture struct {
	ledger  *etherman.SimLedger
	wallet  *walletclient.SimWallet
	sim     *queue.SimConsumer
	brokers *broker.Brokers
	coord   *Coordinator
}

func newFixture(t *testing.T, mutate func(cfg *Config)) *fixture {
	t.Helper()
	logconfig.ConfigDebugLogger()

	ledger := etherman.NewSimLedger(memberAddr)
	wallet := walletclient.NewSimWallet()

	cache, err := limits.NewCache(16, ledger)
	require.NoError(t, err)

	brokers := &broker.Brokers{
		Evm:       broker.NewEvmBroker(ledger, wallet, memberAddr, cache),
		Sidechain: broker.NewSidechainBroker(ledger, wallet, memberAddr, cache, nil),
	}

	cfg := &Config{
		SignatureThreshold: 2,
		MemberIndex:        1,
		TokenTable:         map[string]ethcommon.Address{tokenUid: tokenAddr},
	}
	if mutate != nil {
		mutate(cfg)
	}

	sim := queue.NewSimConsumer()
	sim.MaxRedeliveries = 3

	return &fixture{
		ledger:  ledger,
		wallet:  wallet,
		sim:     sim,
		brokers: brokers,
		coord:   New(cfg, ledger, brokers, sim),
	}
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	require.NoError(t, f.coord.Run(context.Background()))
}

// inboundTx builds a sidechain deposit: token output plus the chunked
// destination address.
func inboundTx(t *testing.T, txId string) *agreement.SidechainTransaction {
	t.Helper()
	outputs, err := customdata.EncodeOutputs(customdata.TagAddr, receiverAddr, 30)
	require.NoError(t, err)

	return &agreement.SidechainTransaction{
		TxId:      txId,
		Timestamp: 1700000000,
		Inputs: []agreement.SidechainUtxo{
			{Script: "76a914", Decoded: &agreement.DecodedScript{Type: "P2PKH", Address: senderAddr}},
		},
		Outputs: append(outputs, agreement.SidechainUtxo{
			Script: "a914", Token: tokenUid, Value: 2500,
			Decoded: &agreement.DecodedScript{Type: "P2SH", Address: "bridge-multisig"},
		}),
	}
}

// routedTx builds a proposal or signature transaction.
func routedTx(t *testing.T, tag string, sel customdata.BrokerSelector, target ethcommon.Hash, body string) *agreement.SidechainTransaction {
	t.Helper()
	payload := string(sel) + common.ByteSliceToPureHexStr(target.Bytes()) + body
	outputs, err := customdata.EncodeOutputs(tag, payload, customdata.MaxChunkBody)
	require.NoError(t, err)
	return &agreement.SidechainTransaction{TxId: "feed01", Timestamp: 1700000001, Outputs: outputs}
}

// inboundTransferId re-derives the id the coordinator computes for an
// inbound deposit.
func inboundTransferId(tx *agreement.SidechainTransaction) ethcommon.Hash {
	return agreement.ComputeTransactionId(&agreement.CrossChainTransfer{
		OriginalTokenAddress: tokenAddr,
		TransactionHash:      common.HexStrToHash(tx.TxId),
		Value:                big.NewInt(2500),
		Sender:               senderAddr,
		Receiver:             receiverAddr,
		Flow:                 agreement.FlowMint,
	})
}

// Confirmed inbound MINT: exactly one destination push, transaction
// marked processed, message acknowledged.
func TestInboundMintEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	tx := inboundTx(t, "d001")
	f.wallet.History = []agreement.SidechainTransaction{{TxId: tx.TxId}} // confirmed

	require.NoError(t, f.sim.PublishNewTx(tx))
	f.drain(t)

	id := inboundTransferId(tx)
	assert.Equal(t, 1, f.ledger.Votes[id])
	processed, err := f.ledger.IsProcessed(id)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, 1, f.sim.Acked)
	assert.Equal(t, 0, f.sim.Nacked)
}

// An unconfirmed deposit is nacked for redelivery, never dropped as a
// failure and never pushed.
func TestInboundUnconfirmedNacks(t *testing.T) {
	f := newFixture(t, nil)
	tx := inboundTx(t, "d002")

	require.NoError(t, f.sim.PublishNewTx(tx))
	f.drain(t)

	assert.Empty(t, f.ledger.Votes)
	assert.Equal(t, f.sim.MaxRedeliveries, f.sim.Nacked)
	assert.Equal(t, 1, f.sim.Dropped)
}

// Replaying a message for a transfer the ledger already recorded as
// processed must not double-push value.
func TestInboundReplayIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	tx := inboundTx(t, "d003")
	f.wallet.History = []agreement.SidechainTransaction{{TxId: tx.TxId}}
	f.ledger.SetProcessed(inboundTransferId(tx))

	require.NoError(t, f.sim.PublishNewTx(tx))
	f.drain(t)

	assert.Empty(t, f.ledger.Votes)
	assert.Equal(t, 1, f.sim.Acked)
}

// The same event delivered twice pushes once: the first delivery flips
// the processed flag the second delivery checks.
func TestInboundDuplicateDelivery(t *testing.T) {
	f := newFixture(t, nil)
	tx := inboundTx(t, "d004")
	f.wallet.History = []agreement.SidechainTransaction{{TxId: tx.TxId}}

	require.NoError(t, f.sim.PublishNewTx(tx))
	require.NoError(t, f.sim.PublishNewTx(tx))
	f.drain(t)

	assert.Equal(t, 1, f.ledger.Votes[inboundTransferId(tx)])
	assert.Equal(t, 2, f.sim.Acked)
}

// A deposit of an unlisted token can never be bridged; drop it.
func TestInboundUnknownTokenDropped(t *testing.T) {
	f := newFixture(t, nil)
	tx := inboundTx(t, "d005")
	for i := range tx.Outputs {
		if tx.Outputs[i].Token != "" {
			tx.Outputs[i].Token = "ffff"
		}
	}
	f.wallet.History = []agreement.SidechainTransaction{{TxId: tx.TxId}}

	require.NoError(t, f.sim.PublishNewTx(tx))
	f.drain(t)

	assert.Empty(t, f.ledger.Votes)
	assert.Equal(t, 1, f.sim.Acked)
}

// A confirmed proposal event makes this federator contribute exactly
// one signature, recorded on the ledger and published on the data
// channel.
func TestProposalEventSigns(t *testing.T) {
	f := newFixture(t, nil)
	target := ethcommon.Hash(common.RandBytes32())
	f.wallet.History = []agreement.SidechainTransaction{{TxId: "feed01"}} // carrier settled

	require.NoError(t, f.sim.PublishNewTx(routedTx(t, customdata.TagHex, customdata.SelectorSidechain, target, "00af01")))
	f.drain(t)

	signed, err := f.ledger.IsSigned(target, memberAddr)
	require.NoError(t, err)
	assert.True(t, signed)
	assert.Len(t, f.wallet.SentOutputs, 1)
	assert.Equal(t, 1, f.sim.Acked)
}

// A proposal whose carrier transaction is not yet final waits in the
// queue.
func TestProposalUnconfirmedNacks(t *testing.T) {
	f := newFixture(t, nil)
	target := ethcommon.Hash(common.RandBytes32())

	require.NoError(t, f.sim.PublishNewTx(routedTx(t, customdata.TagHex, customdata.SelectorEvm, target, "00af01")))
	f.drain(t)

	signed, err := f.ledger.IsSigned(target, memberAddr)
	require.NoError(t, err)
	assert.False(t, signed)
	assert.Equal(t, f.sim.MaxRedeliveries, f.sim.Nacked)
}

// A proposal this federator's own sidechain broker publishes must flow
// back through the coordinator and gain a signature once the carrier
// transaction settles: the routed target is the correlation id, never
// a chain transaction hash, so finality is judged on the carrier.
func TestSelfPublishedProposalGainsSignature(t *testing.T) {
	f := newFixture(t, nil)
	transfer := &agreement.CrossChainTransfer{
		OriginalTokenAddress: tokenAddr,
		TransactionHash:      ethcommon.HexToHash("0x11"),
		Value:                big.NewInt(900),
		Sender:               receiverAddr,
		Receiver:             senderAddr,
		Flow:                 agreement.FlowTransfer,
	}
	id := agreement.ComputeTransactionId(transfer)
	require.NoError(t, f.brokers.Sidechain.SendTokensToDestination(transfer, id))
	require.Len(t, f.wallet.SentOutputs, 1)

	carrier := &agreement.SidechainTransaction{TxId: "c4a7", Outputs: f.wallet.SentOutputs[0]}
	f.wallet.History = []agreement.SidechainTransaction{{TxId: carrier.TxId}}

	require.NoError(t, f.sim.PublishNewTx(carrier))
	f.drain(t)

	signed, err := f.ledger.IsSigned(id, memberAddr)
	require.NoError(t, err)
	assert.True(t, signed)
	assert.Equal(t, 1, f.sim.Acked)
	assert.Equal(t, 0, f.sim.Nacked)
}

// Signature events are no-ops for federators before the threshold
// position: acknowledged without a single wallet call.
func TestSignatureBelowThresholdPosition(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.MemberIndex = 0 })
	target := ethcommon.Hash(common.RandBytes32())

	require.NoError(t, f.sim.PublishNewTx(routedTx(t, customdata.TagSig, customdata.SelectorEvm, target, "sig-a")))
	f.drain(t)

	assert.Equal(t, 0, f.wallet.SignAndPushes)
	assert.Empty(t, f.wallet.SentOutputs)
	assert.Equal(t, 1, f.sim.Acked)
	assert.Equal(t, 0, f.sim.Nacked)
}

// With the threshold reached on the ledger, the pushing federator
// completes the proposal exactly once.
func TestSignatureCompletesProposal(t *testing.T) {
	f := newFixture(t, nil)
	target := ethcommon.Hash(common.RandBytes32())
	f.wallet.History = []agreement.SidechainTransaction{{TxId: "feed01"}} // carrier settled
	require.NoError(t, f.ledger.SendTransactionProposal(target, "00af01"))
	require.NoError(t, f.ledger.UpdateSignatureState(target, ethcommon.HexToAddress("0x0a"), "sig-a"))
	require.NoError(t, f.ledger.UpdateSignatureState(target, ethcommon.HexToAddress("0x0b"), "sig-b"))

	require.NoError(t, f.sim.PublishNewTx(routedTx(t, customdata.TagSig, customdata.SelectorEvm, target, "sig-b")))
	f.drain(t)

	assert.Equal(t, 1, f.wallet.SignAndPushes)
	processed, err := f.ledger.IsProcessed(target)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, 1, f.sim.Acked)
}

// Fewer signatures than the threshold: wait for more events.
func TestSignatureInsufficientNacks(t *testing.T) {
	f := newFixture(t, nil)
	target := ethcommon.Hash(common.RandBytes32())
	f.wallet.History = []agreement.SidechainTransaction{{TxId: "feed01"}} // carrier settled
	require.NoError(t, f.ledger.SendTransactionProposal(target, "00af01"))
	require.NoError(t, f.ledger.UpdateSignatureState(target, ethcommon.HexToAddress("0x0a"), "sig-a"))

	require.NoError(t, f.sim.PublishNewTx(routedTx(t, customdata.TagSig, customdata.SelectorEvm, target, "sig-a")))
	f.drain(t)

	assert.Equal(t, 0, f.wallet.SignAndPushes)
	assert.Equal(t, f.sim.MaxRedeliveries, f.sim.Nacked)
}

// An upstream error matching the non-retriable patterns drops the
// message; an unrecognized error redelivers it.
func TestNonRetriableClassification(t *testing.T) {
	setup := func(t *testing.T, pushErr error) *fixture {
		f := newFixture(t, nil)
		target := ethcommon.Hash(common.RandBytes32())
		f.wallet.History = []agreement.SidechainTransaction{{TxId: "feed01"}} // carrier settled
		require.NoError(t, f.ledger.SendTransactionProposal(target, "00af01"))
		require.NoError(t, f.ledger.UpdateSignatureState(target, ethcommon.HexToAddress("0x0a"), "sig-a"))
		require.NoError(t, f.ledger.UpdateSignatureState(target, ethcommon.HexToAddress("0x0b"), "sig-b"))
		f.wallet.SignAndPushErr = pushErr
		require.NoError(t, f.sim.PublishNewTx(routedTx(t, customdata.TagSig, customdata.SelectorEvm, target, "sig-b")))
		return f
	}

	t.Run("matching pattern is dropped", func(t *testing.T) {
		f := setup(t, &walletclient.WalletRequestError{Op: "sign-and-push", Message: "Transaction already exists"})
		f.drain(t)
		assert.Equal(t, 1, f.sim.Acked)
		assert.Equal(t, 0, f.sim.Nacked)
	})

	t.Run("unrecognized error is redelivered", func(t *testing.T) {
		f := setup(t, &walletclient.WalletRequestError{Op: "sign-and-push", Message: "connection reset by peer"})
		f.drain(t)
		assert.Equal(t, 0, f.sim.Acked)
		assert.Equal(t, f.sim.MaxRedeliveries, f.sim.Nacked)
	})
}

// A wallet whose readiness budget ran out is a transient condition:
// redeliver, don't drop.
func TestWalletNotReadyNacks(t *testing.T) {
	f := newFixture(t, nil)
	f.wallet.NotReady[agreement.WalletMultisig] = true
	target := ethcommon.Hash(common.RandBytes32())
	f.wallet.History = []agreement.SidechainTransaction{{TxId: "feed01"}} // carrier settled

	require.NoError(t, f.sim.PublishNewTx(routedTx(t, customdata.TagHex, customdata.SelectorSidechain, target, "00af01")))
	f.drain(t)

	assert.Equal(t, f.sim.MaxRedeliveries, f.sim.Nacked)
}

// Unrelated message types and transactions without bridge data are
// acknowledged and ignored.
func TestIgnoredMessages(t *testing.T) {
	f := newFixture(t, nil)

	f.sim.Publish([]byte(`{"type":"wallet:address-updated","data":{}}`))
	require.NoError(t, f.sim.PublishNewTx(&agreement.SidechainTransaction{
		TxId:    "plain01",
		Outputs: []agreement.SidechainUtxo{{Script: "76a914", Value: 5}},
	}))
	f.drain(t)

	assert.Equal(t, 2, f.sim.Acked)
	assert.Equal(t, 0, f.sim.Nacked)
	assert.Empty(t, f.ledger.Votes)
}

// Inconsistent chunk sets are protocol violations: dropped, not
// retried forever.
func TestMalformedPayloadDropped(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.sim.PublishNewTx(&agreement.SidechainTransaction{
		TxId: "bad01",
		Outputs: []agreement.SidechainUtxo{
			{Type: "data", Data: "hex03abc"}, // chunks 1 and 2 missing
		},
	}))
	f.drain(t)

	assert.Equal(t, 1, f.sim.Acked)
	assert.Equal(t, 0, f.sim.Nacked)
}
