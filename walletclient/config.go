package walletclient

import "time"

const (
	DefaultMaxReadyRetries = 3
	DefaultReadyRetryDelay = 3 * time.Second
)

type Config struct {
	// BaseURL of the headless wallet service, e.g. http://localhost:8000
	BaseURL string

	// WalletId / MultisigWalletId are the values of the
	// wallet-identifying header for the two logical wallets.
	WalletId         string
	MultisigWalletId string

	// SeedKey names the seed the service should use on /start.
	SeedKey string

	// Readiness polling budget. Zero values take the defaults.
	MaxReadyRetries int
	ReadyRetryDelay time.Duration

	// RequestTimeout bounds each individual HTTP call.
	RequestTimeout time.Duration
}

func (c *Config) maxReadyRetries() int {
	if c.MaxReadyRetries <= 0 {
		return DefaultMaxReadyRetries
	}
	return c.MaxReadyRetries
}

func (c *Config) readyRetryDelay() time.Duration {
	if c.ReadyRetryDelay <= 0 {
		return DefaultReadyRetryDelay
	}
	return c.ReadyRetryDelay
}
