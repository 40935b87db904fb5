package limits

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	limits map[ethcommon.Address]*big.Int
	calls  int
}

func (s *countingSource) GetTokenLimit(token ethcommon.Address) (*big.Int, error) {
	s.calls++
	return s.limits[token], nil
}

func TestCacheFillsOnMissOnly(t *testing.T) {
	token := ethcommon.HexToAddress("0x01")
	src := &countingSource{limits: map[ethcommon.Address]*big.Int{token: big.NewInt(1000)}}
	cache, err := NewCache(4, src)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ok, err := cache.Allows(token, big.NewInt(500))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, src.calls)

	ok, err := cache.Allows(token, big.NewInt(1001))
	require.NoError(t, err)
	assert.False(t, ok)
}

// A limit is inclusive; an unknown token is uncapped.
func TestCacheBoundaries(t *testing.T) {
	token := ethcommon.HexToAddress("0x02")
	src := &countingSource{limits: map[ethcommon.Address]*big.Int{token: big.NewInt(100)}}
	cache, err := NewCache(0, src) // 0 -> DefaultSize
	require.NoError(t, err)

	ok, err := cache.Allows(token, big.NewInt(100))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Allows(ethcommon.HexToAddress("0xff"), new(big.Int).Lsh(big.NewInt(1), 200))
	require.NoError(t, err)
	assert.True(t, ok)
}

// The cache is bounded; evicted entries are re-fetched, never served
// from an unbounded shadow map.
func TestCacheEvicts(t *testing.T) {
	src := &countingSource{limits: map[ethcommon.Address]*big.Int{}}
	cache, err := NewCache(2, src)
	require.NoError(t, err)

	a := ethcommon.HexToAddress("0x0a")
	b := ethcommon.HexToAddress("0x0b")
	c := ethcommon.HexToAddress("0x0c")

	for _, token := range []ethcommon.Address{a, b, c} {
		_, err := cache.Get(token)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, src.calls)

	// a was evicted by c in a size-2 cache
	_, err = cache.Get(a)
	require.NoError(t, err)
	assert.Equal(t, 4, src.calls)
}
