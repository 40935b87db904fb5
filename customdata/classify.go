package customdata

import (
	"github.com/btcsuite/btcd/btcutil/base58"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/tokenbridge/federator/agreement"
)

// Kind tags the role a sidechain transaction plays in the bridge.
type Kind uint8

const (
	// KindNone marks a transaction with no recognized custom data;
	// not a bridge transaction, acknowledge and move on.
	KindNone Kind = iota
	KindInboundTransfer
	KindProposal
	KindSignature
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInboundTransfer:
		return "inbound-transfer"
	case KindProposal:
		return "proposal"
	case KindSignature:
		return "signature"
	}
	return "invalid"
}

// InboundTransfer is a token deposit into the bridge's multisig wallet,
// carrying the EVM destination address as addr custom data.
type InboundTransfer struct {
	Receiver string // destination address from the addr payload
	Token    string
	Value    uint64
	Sender   string // first input's decoded address
}

// RoutedItem is a proposal body or partial signature addressed to a
// cross-chain transaction id on one of the two brokers.
type RoutedItem struct {
	Selector BrokerSelector
	TargetId ethcommon.Hash
	Body     string // proposal txHex or signature blob
}

// Classified is the closed tagged variant the coordinator dispatches
// on. Exactly the field matching Kind is set.
type Classified struct {
	Kind      Kind
	Inbound   *InboundTransfer
	Proposal  *RoutedItem
	Signature *RoutedItem
}

// Classify inspects a transaction's custom-data outputs and tags it.
// Priority is addr > hex > sig; a transaction carrying more than one
// tag is a data-integrity anomaly, logged and resolved by priority
// rather than failed.
func Classify(tx *agreement.SidechainTransaction) (*Classified, error) {
	addrPayload, hasAddr, err := Decode(tx, TagAddr)
	if err != nil {
		return nil, err
	}
	hexPayload, hasHex, err := Decode(tx, TagHex)
	if err != nil {
		return nil, err
	}
	sigPayload, hasSig, err := Decode(tx, TagSig)
	if err != nil {
		return nil, err
	}

	if moreThanOne(hasAddr, hasHex, hasSig) {
		logger.WithFields(logger.Fields{
			"tx":   tx.TxId,
			"addr": hasAddr,
			"hex":  hasHex,
			"sig":  hasSig,
		}).Warn("transaction carries multiple custom-data tags, resolving by priority")
	}

	switch {
	case hasAddr:
		inbound, err := extractInbound(tx, addrPayload)
		if err != nil {
			return nil, err
		}
		return &Classified{Kind: KindInboundTransfer, Inbound: inbound}, nil

	case hasHex:
		sel, id, body, err := splitRouted(TagHex, hexPayload)
		if err != nil {
			return nil, err
		}
		return &Classified{Kind: KindProposal, Proposal: &RoutedItem{Selector: sel, TargetId: id, Body: body}}, nil

	case hasSig:
		sel, id, body, err := splitRouted(TagSig, sigPayload)
		if err != nil {
			return nil, err
		}
		return &Classified{Kind: KindSignature, Signature: &RoutedItem{Selector: sel, TargetId: id, Body: body}}, nil
	}

	return &Classified{Kind: KindNone}, nil
}

// extractInbound pairs the addr payload with the token output that
// funds the transfer.
func extractInbound(tx *agreement.SidechainTransaction, receiver string) (*InboundTransfer, error) {
	if len(base58.Decode(receiver)) == 0 && !ethcommon.IsHexAddress(receiver) {
		return nil, &MalformedPayloadError{Tag: TagAddr, Reason: "destination address is neither base58 nor hex"}
	}

	inbound := &InboundTransfer{
		Receiver: receiver,
		Sender:   tx.FirstInputAddress(),
	}
	for _, out := range tx.Outputs {
		if out.IsData() || out.Token == "" {
			continue
		}
		inbound.Token = out.Token
		inbound.Value = out.Value
		break
	}
	if inbound.Token == "" {
		return nil, &MalformedPayloadError{Tag: TagAddr, Reason: "no token output accompanies the destination address"}
	}
	return inbound, nil
}

func moreThanOne(flags ...bool) bool {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n > 1
}
