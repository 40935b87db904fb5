// Etherman wraps the on-chain federation contract: the passive ledger
// that tracks federation membership and the monotone
// proposed/signed/processed flags per cross-chain transaction id. The
// coordinator holds no durable state of its own; these flags are what
// make event redelivery safe.

package etherman

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/tokenbridge/federator/agreement"
)

var (
	// Events emitted by the federation contract. They are consumed by
	// the EVM-side counterpart of this coordinator; we only need the
	// topics for receipt inspection and debugging.
	TransactionProposedSignatureHash = crypto.Keccak256Hash([]byte("TransactionProposed(bytes32,string)"))
	ProposalSignedSignatureHash      = crypto.Keccak256Hash([]byte("ProposalSigned(bytes32,address,string)"))
	ProposalSentSignatureHash        = crypto.Keccak256Hash([]byte("ProposalSent(bytes32)"))

	ErrNotFederationMember = errors.New("address is not a federation member")
)

type ethereumClient interface {
	ethereum.ChainReader
	ethereum.ContractCaller
	ethereum.GasEstimator
	ethereum.GasPricer
	ethereum.LogFilterer
	ethereum.TransactionReader
	ethereum.TransactionSender
	ethereum.PendingStateReader

	bind.ContractBackend
}

type Etherman struct {
	cfg       *Config
	ethClient ethereumClient
	auth      *bind.TransactOpts
	contract  *bind.BoundContract
	myAddress ethcommon.Address
}

var _ agreement.FederationLedger = (*Etherman)(nil)

func NewEtherman(cfg *Config) (*Etherman, error) {
	ethClient, err := ethclient.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	return newEtherman(cfg, ethClient)
}

func newEtherman(cfg *Config, client ethereumClient) (*Etherman, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(cfg.PrivateKey, cfg.ChainId)
	if err != nil {
		return nil, err
	}

	parsed, err := abi.JSON(strings.NewReader(FederationABI))
	if err != nil {
		return nil, err
	}

	return &Etherman{
		cfg:       cfg,
		ethClient: client,
		auth:      auth,
		contract:  bind.NewBoundContract(cfg.FederationContractAddress, parsed, client, client, client),
		myAddress: crypto.PubkeyToAddress(cfg.PrivateKey.PublicKey),
	}, nil
}

// MyAddress is this federator's member address.
func (e *Etherman) MyAddress() ethcommon.Address {
	return e.myAddress
}

func (e *Etherman) callBool(method string, args ...interface{}) (bool, error) {
	var out []interface{}
	if err := e.contract.Call(&bind.CallOpts{}, &out, method, args...); err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (e *Etherman) GetTransactionId(t *agreement.CrossChainTransfer) (ethcommon.Hash, error) {
	var out []interface{}
	err := e.contract.Call(&bind.CallOpts{}, &out, "getTransactionId",
		t.OriginalTokenAddress, t.Sender, t.Receiver, t.Value, [32]byte(t.TransactionHash), uint8(t.Flow))
	if err != nil {
		return ethcommon.Hash{}, err
	}
	return ethcommon.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

func (e *Etherman) IsProposed(id ethcommon.Hash) (bool, error) {
	return e.callBool("isProposed", [32]byte(id))
}

func (e *Etherman) IsSigned(id ethcommon.Hash, member ethcommon.Address) (bool, error) {
	return e.callBool("isSigned", [32]byte(id), member)
}

func (e *Etherman) IsProcessed(id ethcommon.Hash) (bool, error) {
	return e.callBool("isProcessed", [32]byte(id))
}

func (e *Etherman) GetSignatureCount(id ethcommon.Hash) (int, error) {
	var out []interface{}
	if err := e.contract.Call(&bind.CallOpts{}, &out, "getSignatureCount", [32]byte(id)); err != nil {
		return 0, err
	}
	return int((*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)).Int64()), nil
}

func (e *Etherman) GetSignatures(id ethcommon.Hash) (*agreement.SignaturePackage, error) {
	var out []interface{}
	if err := e.contract.Call(&bind.CallOpts{}, &out, "getSignatures", [32]byte(id)); err != nil {
		return nil, err
	}
	return &agreement.SignaturePackage{
		TxHex:      *abi.ConvertType(out[0], new(string)).(*string),
		Signatures: *abi.ConvertType(out[1], new([]string)).(*[]string),
	}, nil
}

func (e *Etherman) GetMemberIndex(member ethcommon.Address) (int, error) {
	var out []interface{}
	if err := e.contract.Call(&bind.CallOpts{}, &out, "getMemberIndex", member); err != nil {
		return 0, err
	}
	idx := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if idx.Sign() < 0 {
		return 0, ErrNotFederationMember
	}
	return int(idx.Int64()), nil
}

func (e *Etherman) GetTokenLimit(token ethcommon.Address) (*big.Int, error) {
	var out []interface{}
	if err := e.contract.Call(&bind.CallOpts{}, &out, "tokenLimit", token); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (e *Etherman) SendTransactionProposal(id ethcommon.Hash, txHex string) error {
	_, err := e.contract.Transact(e.auth, "sendTransactionProposal", [32]byte(id), txHex)
	return err
}

func (e *Etherman) UpdateSignatureState(id ethcommon.Hash, member ethcommon.Address, signature string) error {
	_, err := e.contract.Transact(e.auth, "updateSignatureState", [32]byte(id), member, signature)
	return err
}

func (e *Etherman) UpdateTransactionState(id ethcommon.Hash) error {
	_, err := e.contract.Transact(e.auth, "updateTransactionState", [32]byte(id))
	return err
}

func (e *Etherman) VoteTransaction(t *agreement.CrossChainTransfer, id ethcommon.Hash) error {
	_, err := e.contract.Transact(e.auth, "voteTransaction",
		t.OriginalTokenAddress, t.Sender, t.Receiver, t.Value,
		[32]byte(t.TransactionHash), uint8(t.Flow), [32]byte(id))
	return err
}

// IsTxConfirmed applies the configured confirmation depth to the block
// that included txHash. An unknown transaction is simply "not yet
// confirmed", not an error: the queue will redeliver.
func (e *Etherman) IsTxConfirmed(txHash ethcommon.Hash) (bool, error) {
	ctx := context.Background()

	receipt, err := e.ethClient.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if receipt.BlockNumber == nil {
		return false, nil
	}

	head, err := e.ethClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return false, err
	}

	depth := new(big.Int).Sub(head.Number, receipt.BlockNumber)
	// A reorg can leave the head behind the receipt's block.
	if depth.Sign() < 0 {
		return false, nil
	}
	return depth.Uint64()+1 >= e.cfg.Confirmations, nil
}
