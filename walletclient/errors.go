package walletclient

import (
	"errors"
	"fmt"
)

var ErrWalletRequest = errors.New("wallet request failed")

// WalletRequestError is returned on non-2xx responses and on
// success=false response bodies. It keeps the upstream error code and
// message inspectable so the coordinator can classify non-retriable
// failures (e.g. "Transaction already exists").
type WalletRequestError struct {
	Op           string // which wallet operation failed
	HTTPStatus   int    // 0 when the request never completed
	UpstreamCode string // wallet service error code, if any
	Message      string // wallet service error message, if any
}

func (e *WalletRequestError) Error() string {
	msg := fmt.Sprintf("wallet %s failed", e.Op)
	if e.HTTPStatus != 0 {
		msg += fmt.Sprintf(" (http %d)", e.HTTPStatus)
	}
	if e.UpstreamCode != "" {
		msg += fmt.Sprintf(" code=%s", e.UpstreamCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *WalletRequestError) Unwrap() error { return ErrWalletRequest }
