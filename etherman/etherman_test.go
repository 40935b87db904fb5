package etherman

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenbridge/federator/agreement"
	"github.com/tokenbridge/federator/common"
)

func TestFederationABIParses(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(FederationABI))
	require.NoError(t, err)

	for _, method := range []string{
		"getTransactionId", "isProposed", "isSigned", "isProcessed",
		"getSignatureCount", "getSignatures", "getMemberIndex", "tokenLimit",
		"sendTransactionProposal", "updateSignatureState",
		"updateTransactionState", "voteTransaction",
	} {
		_, ok := parsed.Methods[method]
		assert.True(t, ok, "missing method %s", method)
	}
	for _, event := range []string{"TransactionProposed", "ProposalSigned", "ProposalSent"} {
		_, ok := parsed.Events[event]
		assert.True(t, ok, "missing event %s", event)
	}
}

// The ledger's flags are one-way: a second transition of any of them
// is rejected. Everything the coordinator assumes about redelivery
// safety rests on this behavior.
func TestSimLedgerMonotoneFlags(t *testing.T) {
	member := ethcommon.HexToAddress("0x01")
	ledger := NewSimLedger(member)
	id := ethcommon.Hash(common.RandBytes32())

	// propose once
	require.NoError(t, ledger.SendTransactionProposal(id, "00aa"))
	proposed, err := ledger.IsProposed(id)
	require.NoError(t, err)
	assert.True(t, proposed)
	assert.ErrorIs(t, ledger.SendTransactionProposal(id, "00aa"), ErrAlreadyProposed)

	// sign once per member
	require.NoError(t, ledger.UpdateSignatureState(id, member, "sig-a"))
	assert.ErrorIs(t, ledger.UpdateSignatureState(id, member, "sig-b"), ErrAlreadySigned)

	count, err := ledger.GetSignatureCount(id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	pkg, err := ledger.GetSignatures(id)
	require.NoError(t, err)
	assert.Equal(t, "00aa", pkg.TxHex)
	assert.Equal(t, []string{"sig-a"}, pkg.Signatures)

	// process once
	require.NoError(t, ledger.UpdateTransactionState(id))
	assert.ErrorIs(t, ledger.UpdateTransactionState(id), ErrAlreadyProcessed)
}

func TestSimLedgerMembership(t *testing.T) {
	a := ethcommon.HexToAddress("0x0a")
	b := ethcommon.HexToAddress("0x0b")
	ledger := NewSimLedger(a, b)

	idx, err := ledger.GetMemberIndex(b)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = ledger.GetMemberIndex(ethcommon.HexToAddress("0xff"))
	assert.ErrorIs(t, err, ErrNotFederationMember)
}

// stubEthClient overrides only the calls IsTxConfirmed makes; the
// embedded interface satisfies the rest.
type stubEthClient struct {
	ethereumClient
	receipt *types.Receipt
	head    *types.Header
}

func (s *stubEthClient) TransactionReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error) {
	return s.receipt, nil
}

func (s *stubEthClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return s.head, nil
}

// Confirmation depth is head minus the receipt's block. A reorg can
// leave the head behind the receipt, which must read as unconfirmed
// rather than wrapping around.
func TestIsTxConfirmedDepth(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	client := &stubEthClient{
		receipt: &types.Receipt{BlockNumber: big.NewInt(100)},
	}
	e, err := newEtherman(&Config{
		PrivateKey:    key,
		ChainId:       big.NewInt(31337),
		Confirmations: 6,
	}, client)
	require.NoError(t, err)

	txHash := ethcommon.Hash(common.RandBytes32())

	for _, tt := range []struct {
		name string
		head int64
		want bool
	}{
		{"head behind receipt after reorg", 90, false},
		{"one short of the depth", 104, false},
		{"exactly at the depth", 105, true},
		{"well past the depth", 200, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			client.head = &types.Header{Number: big.NewInt(tt.head)}
			confirmed, err := e.IsTxConfirmed(txHash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, confirmed)
		})
	}
}

// The ledger exposes the contract's id derivation so callers can
// cross-check it against the local one through the interface.
func TestLedgerTransactionIdAgreement(t *testing.T) {
	var ledger agreement.FederationLedger = NewSimLedger()

	transfer := &agreement.CrossChainTransfer{
		OriginalTokenAddress: ethcommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		TransactionHash:      ethcommon.Hash(common.RandBytes32()),
		Value:                big.NewInt(2500),
		Sender:               "WdmDUMe8a6dS8HJaxzRPjCtTbqZW6PZLZk",
		Receiver:             "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
		Flow:                 agreement.FlowMint,
	}

	id, err := ledger.GetTransactionId(transfer)
	require.NoError(t, err)
	assert.Equal(t, agreement.ComputeTransactionId(transfer), id)
}
