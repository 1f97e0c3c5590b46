package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ammABI is the read-only slice of the bonding-curve AMM we call.
const ammABI = `[{"inputs":[{"internalType":"address","name":"token","type":"address"}],"name":"getReserves","outputs":[{"internalType":"uint256","name":"ogReserve","type":"uint256"},{"internalType":"uint256","name":"tokenReserve","type":"uint256"}],"stateMutability":"view","type":"function"}]`

type Header struct {
	Number uint64
	Hash   common.Hash
}

type Reserves struct {
	OG    *big.Int
	Token *big.Int
}

// Client is the on-chain boundary used by randomness and quotes.
type Client interface {
	LatestHeader(ctx context.Context) (Header, error)
	Reserves(ctx context.Context, amm, token common.Address) (Reserves, error)
}

// caller is the subset of ethclient.Client the RPC client needs.
type caller interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type RPCClient struct {
	eth caller
	abi abi.ABI
	raw *ethclient.Client
}

func Dial(ctx context.Context, url string) (*RPCClient, error) {
	raw, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	c, err := newRPCClient(raw)
	if err != nil {
		raw.Close()
		return nil, err
	}
	c.raw = raw
	return c, nil
}

func newRPCClient(eth caller) (*RPCClient, error) {
	parsed, err := abi.JSON(strings.NewReader(ammABI))
	if err != nil {
		return nil, fmt.Errorf("parse amm abi: %w", err)
	}
	return &RPCClient{eth: eth, abi: parsed}, nil
}

func (c *RPCClient) LatestHeader(ctx context.Context) (Header, error) {
	h, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return Header{}, fmt.Errorf("latest header: %w", err)
	}
	return Header{Number: h.Number.Uint64(), Hash: h.Hash()}, nil
}

func (c *RPCClient) Reserves(ctx context.Context, amm, token common.Address) (Reserves, error) {
	input, err := c.abi.Pack("getReserves", token)
	if err != nil {
		return Reserves{}, err
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &amm, Data: input}, nil)
	if err != nil {
		return Reserves{}, fmt.Errorf("getReserves: %w", err)
	}
	values, err := c.abi.Unpack("getReserves", out)
	if err != nil {
		return Reserves{}, fmt.Errorf("decode getReserves: %w", err)
	}
	if len(values) != 2 {
		return Reserves{}, fmt.Errorf("decode getReserves: want 2 values, got %d", len(values))
	}
	og, ok1 := values[0].(*big.Int)
	tok, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 {
		return Reserves{}, fmt.Errorf("decode getReserves: unexpected types")
	}
	return Reserves{OG: og, Token: tok}, nil
}

func (c *RPCClient) Close() {
	if c.raw != nil {
		c.raw.Close()
	}
}
