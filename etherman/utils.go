package etherman

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// StringToPrivateKey parses a hex-encoded secp256k1 private key,
// with or without the 0x prefix.
func StringToPrivateKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(s, "0x")
	return crypto.HexToECDSA(s)
}
