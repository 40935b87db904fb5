// Bounded per-token transfer-limit cache.
//
// Limits only need to be approximately fresh: entries are filled on
// miss from the ledger and never invalidated, so a stale entry can only
// be as stale as the cache bound allows. The cache is an explicit
// dependency handed to the brokers, not ambient state.

package limits

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSize = 128

// Source is where limits come from on a cache miss. A nil limit means
// the token is uncapped.
type Source interface {
	GetTokenLimit(token ethcommon.Address) (*big.Int, error)
}

type Cache struct {
	entries *lru.Cache[ethcommon.Address, *big.Int]
	source  Source
}

func NewCache(size int, source Source) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[ethcommon.Address, *big.Int](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, source: source}, nil
}

// Get returns the token's per-transfer cap, nil when uncapped.
func (c *Cache) Get(token ethcommon.Address) (*big.Int, error) {
	if limit, ok := c.entries.Get(token); ok {
		return limit, nil
	}
	limit, err := c.source.GetTokenLimit(token)
	if err != nil {
		return nil, err
	}
	c.entries.Add(token, limit)
	return limit, nil
}

// Allows reports whether amount fits under the token's cap.
func (c *Cache) Allows(token ethcommon.Address, amount *big.Int) (bool, error) {
	limit, err := c.Get(token)
	if err != nil {
		return false, err
	}
	if limit == nil {
		return true, nil
	}
	return amount.Cmp(limit) <= 0, nil
}
