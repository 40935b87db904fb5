package common

import (
	"crypto/rand"
	"math/big"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Trim0xPrefix drops a leading 0x/0X from a hex string.
func Trim0xPrefix(str string) string {
	s := strings.TrimPrefix(str, "0x")
	return strings.TrimPrefix(s, "0X")
}

func Prepend0xPrefix(str string) string {
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		return str
	}
	return "0x" + str
}

// ByteSliceToPureHexStr encodes bytes as hex without a 0x prefix.
func ByteSliceToPureHexStr(b []byte) string {
	return Trim0xPrefix(ethcommon.Bytes2Hex(b))
}

func HexStrToByteSlice(hexStr string) []byte {
	return ethcommon.Hex2Bytes(Trim0xPrefix(hexStr))
}

// HexStrToHash converts a hex string (with/without 0x) to a Hash.
func HexStrToHash(hexStr string) ethcommon.Hash {
	return ethcommon.HexToHash(hexStr)
}

// HexStrToBigInt parses a hex string (with/without 0x) as a big.Int,
// nil if unparsable.
func HexStrToBigInt(hexStr string) *big.Int {
	bigInt, ok := new(big.Int).SetString(Trim0xPrefix(hexStr), 16)
	if !ok {
		return nil
	}
	return bigInt
}

// BigIntToHexStr formats a big.Int as 0x-prefixed hex.
func BigIntToHexStr(bigInt *big.Int) string {
	return Prepend0xPrefix(bigInt.Text(16))
}

// Shorten clips a hex string to n characters on each side with "..."
// in between. Handy for log lines carrying proposal hex.
func Shorten(hexStr string, n int) string {
	if len(hexStr) <= 2*n {
		return hexStr
	}
	return hexStr[:n] + "..." + hexStr[len(hexStr)-n:]
}

// RandBytes32 generates a [32]byte with random values (test helper).
func RandBytes32() [32]byte {
	var b [32]byte
	if n, err := rand.Read(b[:]); err != nil || n != 32 {
		return [32]byte{}
	}
	return b
}
