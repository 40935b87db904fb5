// In-memory federation ledger for tests. It enforces the same monotone
// one-way flags as the contract: a member signs a transaction id at
// most once, a proposal is sent at most once, nothing is processed
// twice. Idempotence tests lean on these guards exactly the way the
// coordinator leans on the real contract's.

package etherman

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/tokenbridge/federator/agreement"
)

var (
	ErrAlreadyProposed  = errors.New("transaction proposal already exists")
	ErrAlreadySigned    = errors.New("member already signed this transaction")
	ErrAlreadyProcessed = errors.New("transaction already processed")
)

type SimLedger struct {
	mu sync.Mutex

	members []ethcommon.Address
	limits  map[ethcommon.Address]*big.Int

	proposed  map[ethcommon.Hash]string // id -> txHex
	signed    map[ethcommon.Hash]map[ethcommon.Address]string
	sigOrder  map[ethcommon.Hash][]string
	processed map[ethcommon.Hash]bool
	confirmed map[ethcommon.Hash]bool

	// Votes counts destination pushes per id, for exactly-once asserts.
	Votes map[ethcommon.Hash]int
}

var _ agreement.FederationLedger = (*SimLedger)(nil)

func NewSimLedger(members ...ethcommon.Address) *SimLedger {
	return &SimLedger{
		members:   members,
		limits:    make(map[ethcommon.Address]*big.Int),
		proposed:  make(map[ethcommon.Hash]string),
		signed:    make(map[ethcommon.Hash]map[ethcommon.Address]string),
		sigOrder:  make(map[ethcommon.Hash][]string),
		processed: make(map[ethcommon.Hash]bool),
		confirmed: make(map[ethcommon.Hash]bool),
		Votes:     make(map[ethcommon.Hash]int),
	}
}

// SetConfirmed marks an origin transaction as final.
func (s *SimLedger) SetConfirmed(txHash ethcommon.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed[txHash] = true
}

// SetProcessed force-sets the processed flag, simulating work done by
// another federator in a previous delivery.
func (s *SimLedger) SetProcessed(id ethcommon.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[id] = true
}

func (s *SimLedger) SetTokenLimit(token ethcommon.Address, limit *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[token] = limit
}

func (s *SimLedger) GetTransactionId(t *agreement.CrossChainTransfer) (ethcommon.Hash, error) {
	return agreement.ComputeTransactionId(t), nil
}

func (s *SimLedger) IsProposed(id ethcommon.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.proposed[id]
	return ok, nil
}

func (s *SimLedger) IsSigned(id ethcommon.Hash, member ethcommon.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.signed[id][member]
	return ok, nil
}

func (s *SimLedger) IsProcessed(id ethcommon.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[id], nil
}

func (s *SimLedger) GetSignatureCount(id ethcommon.Hash) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sigOrder[id]), nil
}

func (s *SimLedger) GetSignatures(id ethcommon.Hash) (*agreement.SignaturePackage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sigs := make([]string, len(s.sigOrder[id]))
	copy(sigs, s.sigOrder[id])
	return &agreement.SignaturePackage{TxHex: s.proposed[id], Signatures: sigs}, nil
}

func (s *SimLedger) GetMemberIndex(member ethcommon.Address) (int, error) {
	for i, m := range s.members {
		if m == member {
			return i, nil
		}
	}
	return 0, ErrNotFederationMember
}

func (s *SimLedger) GetTokenLimit(token ethcommon.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit, ok := s.limits[token]; ok {
		return new(big.Int).Set(limit), nil
	}
	// no configured limit means unlimited
	return nil, nil
}

func (s *SimLedger) SendTransactionProposal(id ethcommon.Hash, txHex string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proposed[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyProposed, id.Hex())
	}
	s.proposed[id] = txHex
	return nil
}

func (s *SimLedger) UpdateSignatureState(id ethcommon.Hash, member ethcommon.Address, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.signed[id][member]; ok {
		return fmt.Errorf("%w: %s by %s", ErrAlreadySigned, id.Hex(), member.Hex())
	}
	if s.signed[id] == nil {
		s.signed[id] = make(map[ethcommon.Address]string)
	}
	s.signed[id][member] = signature
	s.sigOrder[id] = append(s.sigOrder[id], signature)
	return nil
}

func (s *SimLedger) UpdateTransactionState(id ethcommon.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processed[id] {
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, id.Hex())
	}
	s.processed[id] = true
	return nil
}

func (s *SimLedger) VoteTransaction(t *agreement.CrossChainTransfer, id ethcommon.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processed[id] {
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, id.Hex())
	}
	s.Votes[id]++
	return nil
}

func (s *SimLedger) IsTxConfirmed(txHash ethcommon.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed[txHash], nil
}
