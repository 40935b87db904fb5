package customdata

/*
Decoded hex/sig payloads are routed to one of the two brokers by a
3-char selector at the head of the payload, followed by the 64-hex-char
cross-chain transaction id the item refers to:

	"<hsh|hid><transactionId:64><body>"

hsh targets the EVM-bound broker, hid the sidechain-bound one. The
selector is the single string-matching decision point for broker
dispatch; everything downstream switches on the closed BrokerSelector
type.
*/

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/tokenbridge/federator/common"
)

// BrokerSelector picks the destination-chain broker for a routed item.
type BrokerSelector string

const (
	SelectorEvm       BrokerSelector = "hsh"
	SelectorSidechain BrokerSelector = "hid"

	selectorLen = 3
	idHexLen    = 64
)

// splitRouted takes a decoded hex/sig payload apart into selector,
// target transaction id and body.
func splitRouted(tag, payload string) (BrokerSelector, ethcommon.Hash, string, error) {
	if len(payload) < selectorLen+idHexLen {
		return "", ethcommon.Hash{}, "", &MalformedPayloadError{Tag: tag,
			Reason: fmt.Sprintf("routed payload too short (%d chars)", len(payload))}
	}

	sel := BrokerSelector(payload[:selectorLen])
	switch sel {
	case SelectorEvm, SelectorSidechain:
	default:
		return "", ethcommon.Hash{}, "", &MalformedPayloadError{Tag: tag,
			Reason: fmt.Sprintf("unknown broker selector %q", string(sel))}
	}

	idHex := payload[selectorLen : selectorLen+idHexLen]
	idBytes := common.HexStrToByteSlice(idHex)
	if len(idBytes) != 32 {
		return "", ethcommon.Hash{}, "", &MalformedPayloadError{Tag: tag,
			Reason: "target transaction id is not 32 bytes of hex"}
	}

	return sel, ethcommon.BytesToHash(idBytes), payload[selectorLen+idHexLen:], nil
}
