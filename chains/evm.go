// chains/evm.go
package chains

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"voisss-backend/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// recordingABI covers the single write the backend performs.
const recordingABI = `[{"type":"function","name":"saveRecording","stateMutability":"nonpayable","inputs":[
{"name":"ipfsHash","type":"string"},{"name":"title","type":"string"},{"name":"description","type":"string"},
{"name":"duration","type":"uint256"},{"name":"isPublic","type":"bool"},{"name":"tags","type":"string[]"},
{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}]`

type transactor interface {
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

// EVMRecorder calls saveRecording on an EVM contract with a service key.
type EVMRecorder struct {
	chain    models.Chain
	contract transactor
	signer   func(ctx context.Context) (*bind.TransactOpts, error)
}

func NewEVMRecorder(ctx context.Context, chain models.Chain, rpcURL, contractAddr, privateKeyHex string, chainID int64) (*EVMRecorder, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddr)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(recordingABI))
	if err != nil {
		return nil, fmt.Errorf("parsing recording ABI: %w", err)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s rpc: %w", chain, err)
	}

	contract := bind.NewBoundContract(common.HexToAddress(contractAddr), parsed, client, client, client)
	id := big.NewInt(chainID)
	return &EVMRecorder{
		chain:    chain,
		contract: contract,
		signer: func(ctx context.Context) (*bind.TransactOpts, error) {
			opts, err := bind.NewKeyedTransactorWithChainID(key, id)
			if err != nil {
				return nil, err
			}
			opts.Context = ctx
			return opts, nil
		},
	}, nil
}

func (r *EVMRecorder) Chain() models.Chain { return r.chain }

func (r *EVMRecorder) SaveRecording(ctx context.Context, req models.SaveRecordingRequest) (string, error) {
	opts, err := r.signer(ctx)
	if err != nil {
		return "", fmt.Errorf("building %s transactor: %w", r.chain, err)
	}
	tags := req.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	tx, err := r.contract.Transact(opts, "saveRecording",
		req.IPFSHash,
		req.Metadata.Title,
		req.Metadata.Description,
		big.NewInt(int64(req.Metadata.Duration)),
		req.Metadata.IsPublic,
		tags,
		common.HexToAddress(req.Owner),
	)
	if err != nil {
		return "", fmt.Errorf("%s saveRecording failed: %w", r.chain, err)
	}
	return tx.Hash().Hex(), nil
}
