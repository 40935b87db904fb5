// Global agreement on types shared by both sides of the bridge.

package agreement

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TransferFlow is the direction/kind of a cross-chain token movement.
type TransferFlow uint8

const (
	FlowMelt TransferFlow = iota
	FlowMint
	FlowTransfer
	FlowReturn
)

func (f TransferFlow) String() string {
	switch f {
	case FlowMelt:
		return "MELT"
	case FlowMint:
		return "MINT"
	case FlowTransfer:
		return "TRANSFER"
	case FlowReturn:
		return "RETURN"
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(f))
}

// ParseTransferFlow converts a flow name back to its enum value.
func ParseTransferFlow(s string) (TransferFlow, error) {
	switch s {
	case "MELT":
		return FlowMelt, nil
	case "MINT":
		return FlowMint, nil
	case "TRANSFER":
		return FlowTransfer, nil
	case "RETURN":
		return FlowReturn, nil
	}
	return 0, fmt.Errorf("unknown transfer flow %q", s)
}

// CrossChainTransfer is the semantic transfer intent observed on the
// origin chain. It is immutable once observed; every federator derives
// the same TransactionId from it.
type CrossChainTransfer struct {
	OriginalTokenAddress common.Address
	TransactionHash      common.Hash // origin chain tx
	Value                *big.Int
	Sender               string
	Receiver             string
	Flow                 TransferFlow
}

func (t *CrossChainTransfer) String() string {
	return fmt.Sprintf("transfer{token=%s, origin=%s, value=%s, %s -> %s, flow=%s}",
		t.OriginalTokenAddress.Hex(), t.TransactionHash.Hex(), t.Value, t.Sender, t.Receiver, t.Flow)
}

// DecodedScript is the wallet-decoded metadata of an input/output script.
type DecodedScript struct {
	Type     string `json:"type"`
	Address  string `json:"address"`
	Timelock int64  `json:"timelock"`
}

// SidechainUtxo is one input or output of a sidechain transaction.
// Data-carrying outputs repurpose the slot for opaque application
// payload ("custom data") instead of value transfer.
type SidechainUtxo struct {
	Script  string         `json:"script"`
	Token   string         `json:"token,omitempty"`
	Value   uint64         `json:"value"`
	Type    string         `json:"type,omitempty"` // "data" for custom-data outputs
	Data    string         `json:"data,omitempty"` // "<tag><idx><total><chunk>"
	Decoded *DecodedScript `json:"decoded,omitempty"`
}

// IsData reports whether this output carries custom data.
func (u *SidechainUtxo) IsData() bool {
	return u.Type == "data" && u.Data != ""
}

// SidechainTransaction owns an ordered sequence of inputs and outputs,
// in the same shape the wallet service reports over the queue and in
// its tx history.
type SidechainTransaction struct {
	TxId      string          `json:"tx_id"`
	Timestamp int64           `json:"timestamp"`
	Inputs    []SidechainUtxo `json:"inputs"`
	Outputs   []SidechainUtxo `json:"outputs"`
}

// FirstInputAddress returns the decoded address of the first input, the
// conventional "sender" of a sidechain transaction.
func (tx *SidechainTransaction) FirstInputAddress() string {
	for _, in := range tx.Inputs {
		if in.Decoded != nil && in.Decoded.Address != "" {
			return in.Decoded.Address
		}
	}
	return ""
}

// WalletReadiness is the polled readiness of a logical wallet.
type WalletReadiness uint8

const (
	WalletConnecting WalletReadiness = iota + 1
	WalletSyncing
	WalletReady
	WalletStopped
)

func (r WalletReadiness) String() string {
	switch r {
	case WalletConnecting:
		return "CONNECTING"
	case WalletSyncing:
		return "SYNCING"
	case WalletReady:
		return "READY"
	case WalletStopped:
		return "STOPPED"
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(r))
}

// SignaturePackage bundles a proposal hex with the partial signatures
// collected for it so far on the ledger.
type SignaturePackage struct {
	TxHex      string
	Signatures []string
}
