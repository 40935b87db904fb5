package coordinator

import (
	"errors"
	"strings"

	"github.com/tokenbridge/federator/broker"
	"github.com/tokenbridge/federator/customdata"
)

// ErrIdentityMismatch means the locally derived transaction id differs
// from the ledger's derivation for the same transfer. The two ledgers
// are desynchronized; retrying cannot fix it.
var ErrIdentityMismatch = errors.New("transaction id disagrees with the federation ledger")

// DefaultNonRetriablePatterns match upstream error messages that will
// never succeed on redelivery. Matches are acknowledged (dropped) and
// logged as an operational alert.
var DefaultNonRetriablePatterns = []string{
	"Transaction already exists",
	"invalid tx",
	"already processed",
	"already signed",
	"proposal already exists",
}

// errorClassifier decides ack (never going to work, drop) versus nack
// (might be transient, redeliver) for handler failures.
type errorClassifier struct {
	patterns []string
}

func newErrorClassifier(patterns []string) *errorClassifier {
	if len(patterns) == 0 {
		patterns = DefaultNonRetriablePatterns
	}
	return &errorClassifier{patterns: patterns}
}

// NonRetriable reports whether the error is a protocol violation that
// no amount of redelivery can cure. Unrecognized errors stay
// retriable on the theory that they might be transient.
func (c *errorClassifier) NonRetriable(err error) bool {
	switch {
	case errors.Is(err, customdata.ErrMalformedPayload),
		errors.Is(err, broker.ErrLimitExceeded),
		errors.Is(err, ErrIdentityMismatch):
		return true
	case errors.Is(err, broker.ErrWalletNotReady):
		return false
	}

	msg := err.Error()
	for _, p := range c.patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
