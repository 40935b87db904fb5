// Chunked custom-data codec.
//
// The sidechain bounds the payload a single data output can carry, so
// arbitrary-length strings (proposal hex, detached signatures,
// destination addresses) travel as chunks, one per output:
//
//	"<tag><chunkIndex><totalChunks><chunkBody>"
//
// Chunk index and total are single decimal digits with no delimiter;
// the decoder splits on the tag's fixed length. This file is the one
// place a string-splitting bug would silently corrupt a cross-chain
// proposal, hence the heavy boundary testing in codec_test.go.

package customdata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tokenbridge/federator/agreement"
)

// Known type tags. hex/sig payloads additionally carry a broker
// selector prefix, see routed.go.
const (
	TagAddr = "addr" // destination address of an inbound transfer
	TagHex  = "hex"  // proposal body
	TagSig  = "sig"  // partial signature

	// MaxChunkBody is the sidechain's per-output payload bound.
	MaxChunkBody = 145

	// maxChunks follows from the single-digit total.
	maxChunks = 9
)

var ErrMalformedPayload = errors.New("malformed custom-data payload")

// MalformedPayloadError reports an inconsistent chunk set. It unwraps
// to ErrMalformedPayload so callers can classify it without caring
// about the detail.
type MalformedPayloadError struct {
	Tag    string
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %q payload: %s", e.Tag, e.Reason)
}

func (e *MalformedPayloadError) Unwrap() error { return ErrMalformedPayload }

// Encode splits payload into chunks of at most maxChunkLen characters,
// each wrapped in the wire format above. An empty payload still yields
// one (empty-bodied) chunk so the tag stays observable on the wire.
func Encode(tag string, payload string, maxChunkLen int) ([]string, error) {
	if maxChunkLen <= 0 || maxChunkLen > MaxChunkBody {
		return nil, fmt.Errorf("chunk length %d out of range (0, %d]", maxChunkLen, MaxChunkBody)
	}

	total := (len(payload) + maxChunkLen - 1) / maxChunkLen
	if total == 0 {
		total = 1
	}
	if total > maxChunks {
		return nil, fmt.Errorf("payload of %d chars needs %d chunks, channel carries at most %d",
			len(payload), total, maxChunks)
	}

	chunks := make([]string, 0, total)
	for i := 0; i < total; i++ {
		lo := i * maxChunkLen
		hi := lo + maxChunkLen
		if hi > len(payload) {
			hi = len(payload)
		}
		chunks = append(chunks, fmt.Sprintf("%s%d%d%s", tag, i, total, payload[lo:hi]))
	}
	return chunks, nil
}

// EncodeOutputs wraps Encode into ready-to-send data outputs.
func EncodeOutputs(tag string, payload string, maxChunkLen int) ([]agreement.SidechainUtxo, error) {
	chunks, err := Encode(tag, payload, maxChunkLen)
	if err != nil {
		return nil, err
	}
	outs := make([]agreement.SidechainUtxo, 0, len(chunks))
	for _, c := range chunks {
		outs = append(outs, agreement.SidechainUtxo{Type: "data", Data: c})
	}
	return outs, nil
}

// Decode reassembles the logical payload carried under tag by the
// transaction's data outputs. Returns present=false when no output
// carries the tag. A present but inconsistent chunk set (missing index,
// duplicate index, disagreeing totals) fails with MalformedPayloadError.
func Decode(tx *agreement.SidechainTransaction, tag string) (payload string, present bool, err error) {
	bodies := make(map[int]string)
	total := -1

	for _, out := range tx.Outputs {
		if !out.IsData() || !strings.HasPrefix(out.Data, tag) {
			continue
		}
		rest := out.Data[len(tag):]
		if len(rest) < 2 {
			return "", true, &MalformedPayloadError{Tag: tag, Reason: "chunk header truncated"}
		}
		idx, idxOk := digit(rest[0])
		tot, totOk := digit(rest[1])
		if !idxOk || !totOk {
			return "", true, &MalformedPayloadError{Tag: tag, Reason: "chunk header not numeric"}
		}
		if tot == 0 || idx >= tot {
			return "", true, &MalformedPayloadError{Tag: tag,
				Reason: fmt.Sprintf("chunk index %d outside total %d", idx, tot)}
		}
		if total == -1 {
			total = tot
		} else if total != tot {
			return "", true, &MalformedPayloadError{Tag: tag,
				Reason: fmt.Sprintf("chunks disagree on total (%d vs %d)", total, tot)}
		}
		if _, dup := bodies[idx]; dup {
			return "", true, &MalformedPayloadError{Tag: tag,
				Reason: fmt.Sprintf("duplicate chunk index %d", idx)}
		}
		bodies[idx] = rest[2:]
	}

	if total == -1 {
		return "", false, nil
	}

	var sb strings.Builder
	for i := 0; i < total; i++ {
		body, ok := bodies[i]
		if !ok {
			return "", true, &MalformedPayloadError{Tag: tag,
				Reason: fmt.Sprintf("missing chunk %d of %d", i, total)}
		}
		sb.WriteString(body)
	}
	return sb.String(), true, nil
}

func digit(c byte) (int, bool) {
	if c < '0' || c > '9' {
		return 0, false
	}
	return int(c - '0'), true
}
