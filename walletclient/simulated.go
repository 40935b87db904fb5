// In-memory wallet service for broker/coordinator tests.

package walletclient

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/tokenbridge/federator/agreement"
)

type MintProposalCall struct {
	Address string
	Amount  *big.Int
	Token   string
}

type SimWallet struct {
	mu sync.Mutex

	// NotReady marks wallet kinds whose readiness budget is exhausted.
	NotReady map[agreement.WalletKind]bool

	// NextTxHex is returned by CreateMintProposal.
	NextTxHex string

	// MySignature is returned by GetMySignature.
	MySignature string

	// SignAndPushErr, when set, fails SignAndPush.
	SignAndPushErr error

	// History backs GetHistory, newest first.
	History []agreement.SidechainTransaction

	// Recorded calls.
	MintCalls     []MintProposalCall
	SignAndPushes int
	SentOutputs   [][]agreement.SidechainUtxo
}

var _ agreement.WalletService = (*SimWallet)(nil)

func NewSimWallet() *SimWallet {
	return &SimWallet{
		NotReady:    make(map[agreement.WalletKind]bool),
		NextTxHex:   "00af01",
		MySignature: "sim-signature",
	}
}

func (w *SimWallet) EnsureReady(kind agreement.WalletKind) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.NotReady[kind], nil
}

func (w *SimWallet) GetAddress(kind agreement.WalletKind) (string, error) {
	return fmt.Sprintf("sim-%s-address", kind), nil
}

func (w *SimWallet) GetMultisigAddress() (string, error) {
	return w.GetAddress(agreement.WalletMultisig)
}

func (w *SimWallet) CreateMintProposal(address string, amount *big.Int, token string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.MintCalls = append(w.MintCalls, MintProposalCall{Address: address, Amount: amount, Token: token})
	return w.NextTxHex, nil
}

func (w *SimWallet) GetMySignature(txHex string) (string, error) {
	return w.MySignature, nil
}

func (w *SimWallet) SignAndPush(txHex string, signatures []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.SignAndPushErr != nil {
		return w.SignAndPushErr
	}
	w.SignAndPushes++
	return nil
}

func (w *SimWallet) SendTx(outputs []agreement.SidechainUtxo) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.SentOutputs = append(w.SentOutputs, outputs)
	return nil
}

func (w *SimWallet) GetHistory(limit int) ([]agreement.SidechainTransaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if limit > len(w.History) {
		limit = len(w.History)
	}
	out := make([]agreement.SidechainTransaction, limit)
	copy(out, w.History[:limit])
	return out, nil
}
