// Client for the custodial headless wallet service.
//
// All operations are blocking HTTP calls; the service hosts two logical
// wallets (the single-signature operational wallet and the p2sh
// multisig wallet) selected by the X-Wallet-Id header. The service is
// assumed unreliable: readiness is polled with a bounded local retry
// budget, everything past that budget is the queue's problem.

package walletclient

import (
	"fmt"
	"math/big"
	"time"

	resty "github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"github.com/tokenbridge/federator/agreement"
)

const (
	headerWalletId = "X-Wallet-Id"

	routeStatus          = "/wallet/status"
	routeStart           = "/start"
	routeMintProposal    = "/wallet/p2sh/tx-proposal/mint-tokens"
	routeGetMySignatures = "/wallet/p2sh/tx-proposal/get-my-signatures"
	routeSignAndPush     = "/wallet/p2sh/tx-proposal/sign-and-push"
	routeSendTx          = "/wallet/send-tx"
	routeTxHistory       = "/wallet/tx-history"
	routeAddress         = "/wallet/address"
)

type Client struct {
	cfg  *Config
	http *resty.Client

	// sleep is replaceable so readiness tests don't wait wall-clock.
	sleep func(time.Duration)
}

var _ agreement.WalletService = (*Client)(nil)

func NewClient(cfg *Config) *Client {
	http := resty.New().SetBaseURL(cfg.BaseURL)
	if cfg.RequestTimeout > 0 {
		http.SetTimeout(cfg.RequestTimeout)
	}
	return &Client{
		cfg:   cfg,
		http:  http,
		sleep: time.Sleep,
	}
}

func (c *Client) walletId(kind agreement.WalletKind) string {
	if kind == agreement.WalletMultisig {
		return c.cfg.MultisigWalletId
	}
	return c.cfg.WalletId
}

type statusResponse struct {
	Success       bool   `json:"success"`
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}

// Status polls the wallet's readiness once.
func (c *Client) Status(kind agreement.WalletKind) (agreement.WalletReadiness, error) {
	var out statusResponse
	resp, err := c.http.R().
		SetHeader(headerWalletId, c.walletId(kind)).
		SetResult(&out).
		Get(routeStatus)
	if err != nil {
		return 0, &WalletRequestError{Op: "status", Message: err.Error()}
	}
	if resp.IsError() {
		return 0, &WalletRequestError{Op: "status", HTTPStatus: resp.StatusCode()}
	}

	// A success=false status with an empty message means the wallet
	// was never started on the service.
	if !out.Success && out.StatusMessage == "" {
		return agreement.WalletStopped, nil
	}

	switch out.StatusCode {
	case 1:
		return agreement.WalletConnecting, nil
	case 2:
		return agreement.WalletSyncing, nil
	case 3:
		return agreement.WalletReady, nil
	}
	return 0, &WalletRequestError{Op: "status",
		Message: fmt.Sprintf("unknown status code %d (%s)", out.StatusCode, out.StatusMessage)}
}

// EnsureReady polls the wallet until READY, waiting the configured
// delay between polls, at most MaxReadyRetries delays. A stopped wallet
// gets an explicit start call before the next poll.
//
// Retry exhaustion returns (false, nil), not an error: "wallet not
// ready" is a recoverable condition the caller must check for and
// surface as a queue-level retry, never a silent pass.
func (c *Client) EnsureReady(kind agreement.WalletKind) (bool, error) {
	maxRetries := c.cfg.maxReadyRetries()
	delay := c.cfg.readyRetryDelay()

	for attempt := 0; ; attempt++ {
		readiness, err := c.Status(kind)
		if err != nil {
			return false, err
		}

		switch readiness {
		case agreement.WalletReady:
			return true, nil
		case agreement.WalletStopped:
			logger.WithField("wallet", kind).Info("wallet stopped, starting it")
			if err := c.start(kind); err != nil {
				return false, err
			}
		case agreement.WalletConnecting, agreement.WalletSyncing:
			logger.WithFields(logger.Fields{
				"wallet":  kind,
				"state":   readiness.String(),
				"attempt": attempt,
			}).Debug("wallet not ready yet")
		}

		if attempt >= maxRetries {
			logger.WithFields(logger.Fields{
				"wallet":  kind,
				"retries": maxRetries,
			}).Warn("wallet readiness retry budget exhausted")
			return false, nil
		}
		c.sleep(delay)
	}
}

type startRequest struct {
	WalletId string `json:"wallet-id"`
	SeedKey  string `json:"seedKey"`
	Multisig bool   `json:"multisig"`
}

func (c *Client) start(kind agreement.WalletKind) error {
	var out struct {
		Success bool `json:"success"`
	}
	resp, err := c.http.R().
		SetBody(&startRequest{
			WalletId: c.walletId(kind),
			SeedKey:  c.cfg.SeedKey,
			Multisig: kind == agreement.WalletMultisig,
		}).
		SetResult(&out).
		Post(routeStart)
	if err != nil {
		return &WalletRequestError{Op: "start", Message: err.Error()}
	}
	if resp.IsError() || !out.Success {
		return &WalletRequestError{Op: "start", HTTPStatus: resp.StatusCode()}
	}
	return nil
}

// CreateMintProposal asks the multisig wallet to assemble an unsigned
// mint transaction for the given destination.
func (c *Client) CreateMintProposal(address string, amount *big.Int, token string) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		TxHex   string `json:"txHex"`
		Error   string `json:"error"`
	}
	resp, err := c.http.R().
		SetHeader(headerWalletId, c.cfg.MultisigWalletId).
		SetBody(map[string]interface{}{
			"address": address,
			"amount":  amount.String(),
			"token":   token,
		}).
		SetResult(&out).
		Post(routeMintProposal)
	if err != nil {
		return "", &WalletRequestError{Op: "mint-tokens", Message: err.Error()}
	}
	if resp.IsError() || !out.Success {
		return "", &WalletRequestError{Op: "mint-tokens", HTTPStatus: resp.StatusCode(), Message: out.Error}
	}
	return out.TxHex, nil
}

// GetMySignature extracts this federator's partial signature for a
// proposal hex.
func (c *Client) GetMySignature(txHex string) (string, error) {
	var out struct {
		Success    bool   `json:"success"`
		Signatures string `json:"signatures"`
		Error      string `json:"error"`
	}
	resp, err := c.http.R().
		SetHeader(headerWalletId, c.cfg.MultisigWalletId).
		SetBody(map[string]interface{}{"txHex": txHex}).
		SetResult(&out).
		Post(routeGetMySignatures)
	if err != nil {
		return "", &WalletRequestError{Op: "get-my-signatures", Message: err.Error()}
	}
	if resp.IsError() || !out.Success {
		return "", &WalletRequestError{Op: "get-my-signatures", HTTPStatus: resp.StatusCode(), Message: out.Error}
	}
	return out.Signatures, nil
}

// SignAndPush completes a proposal with the collected signatures and
// broadcasts it. Failures surface the upstream error code so the
// coordinator can tell "already exists" from a transient hiccup.
func (c *Client) SignAndPush(txHex string, signatures []string) error {
	var out struct {
		Success   bool   `json:"success"`
		Error     string `json:"error"`
		ErrorCode string `json:"errorCode"`
	}
	resp, err := c.http.R().
		SetHeader(headerWalletId, c.cfg.MultisigWalletId).
		SetBody(map[string]interface{}{
			"txHex":      txHex,
			"signatures": signatures,
		}).
		SetResult(&out).
		SetError(&out).
		Post(routeSignAndPush)
	if err != nil {
		return &WalletRequestError{Op: "sign-and-push", Message: err.Error()}
	}
	if resp.IsError() || !out.Success {
		return &WalletRequestError{
			Op:           "sign-and-push",
			HTTPStatus:   resp.StatusCode(),
			UpstreamCode: out.ErrorCode,
			Message:      out.Error,
		}
	}
	return nil
}

// SendTx broadcasts a transaction from the operational wallet; used to
// publish chunked custom-data outputs on the sidechain.
func (c *Client) SendTx(outputs []agreement.SidechainUtxo) error {
	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	resp, err := c.http.R().
		SetHeader(headerWalletId, c.cfg.WalletId).
		SetBody(map[string]interface{}{"outputs": outputs}).
		SetResult(&out).
		SetError(&out).
		Post(routeSendTx)
	if err != nil {
		return &WalletRequestError{Op: "send-tx", Message: err.Error()}
	}
	if resp.IsError() || !out.Success {
		return &WalletRequestError{Op: "send-tx", HTTPStatus: resp.StatusCode(), Message: out.Error}
	}
	return nil
}

// GetHistory lists the most recent wallet transactions, newest first,
// in the same shape the queue delivers.
func (c *Client) GetHistory(limit int) ([]agreement.SidechainTransaction, error) {
	var out []agreement.SidechainTransaction
	resp, err := c.http.R().
		SetHeader(headerWalletId, c.cfg.MultisigWalletId).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetResult(&out).
		Get(routeTxHistory)
	if err != nil {
		return nil, &WalletRequestError{Op: "tx-history", Message: err.Error()}
	}
	if resp.IsError() {
		return nil, &WalletRequestError{Op: "tx-history", HTTPStatus: resp.StatusCode()}
	}
	return out, nil
}

// GetAddress returns the current address of a logical wallet.
func (c *Client) GetAddress(kind agreement.WalletKind) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		Address string `json:"address"`
	}
	resp, err := c.http.R().
		SetHeader(headerWalletId, c.walletId(kind)).
		SetResult(&out).
		Get(routeAddress)
	if err != nil {
		return "", &WalletRequestError{Op: "address", Message: err.Error()}
	}
	if resp.IsError() || !out.Success {
		return "", &WalletRequestError{Op: "address", HTTPStatus: resp.StatusCode()}
	}
	return out.Address, nil
}

// GetMultisigAddress is the p2sh address deposits should pay into.
func (c *Client) GetMultisigAddress() (string, error) {
	return c.GetAddress(agreement.WalletMultisig)
}
