package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// Options parameterise the RPC client shared by all contract bindings.
type Options struct {
	RPCURL     string
	ChainID    int64
	PrivateKey string
	Timeout    time.Duration
}

// Client owns the JSON-RPC connection and the treasury signing key. Contract
// bindings embed it for calls and transactions.
type Client struct {
	opts      Options
	logger    zerolog.Logger
	key       *ecdsa.PrivateKey
	from      common.Address
	chainID   *big.Int
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewClient builds the shared RPC client. The private key is optional; a
// client without one can read but not transact.
func NewClient(opts Options, logger zerolog.Logger) (*Client, error) {
	if opts.RPCURL == "" {
		return nil, errors.New("chain rpc url not configured")
	}

	c := &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "chain_client").Logger(),
		chainID: big.NewInt(opts.ChainID),
	}

	if opts.PrivateKey != "" {
		key, err := crypto.HexToECDSA(opts.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("parse chain private key: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	return c, nil
}

// Account returns the treasury's own address.
func (c *Client) Account() common.Address {
	return c.from
}

// NativeBalance reads the native-coin balance of the treasury account.
func (c *Client) NativeBalance(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.BalanceAt(ctx, c.from, nil)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *Client) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	client, err := ethclient.DialContext(ctx, c.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

// call performs a read-only contract call and unpacks the outputs.
func (c *Client) call(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &contract, Data: payload}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	outputs, err := contractABI.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return outputs, nil
}

// transact signs, sends, and waits for a state-changing contract call. The
// attached native value may be nil for plain token operations.
func (c *Client) transact(ctx context.Context, contract common.Address, contractABI abi.ABI, value *big.Int, method string, args ...interface{}) error {
	if c.key == nil {
		return errors.New("chain private key not configured; cannot transact")
	}

	client, err := c.getClient(ctx)
	if err != nil {
		return err
	}

	payload, err := contractABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}

	nonce, err := client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return fmt.Errorf("fetch nonce: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas price: %w", err)
	}

	if value == nil {
		value = new(big.Int)
	}

	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:     c.from,
		To:       &contract,
		Value:    value,
		GasPrice: gasPrice,
		Data:     payload,
	})
	if err != nil {
		return fmt.Errorf("estimate gas for %s: %w", method, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     payload,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return fmt.Errorf("sign %s: %w", method, err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	c.logger.Debug().Str("method", method).Str("tx", signed.Hash().Hex()).Msg("transaction sent")

	receipt, err := bind.WaitMined(ctx, client, signed)
	if err != nil {
		return fmt.Errorf("wait %s: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s reverted in tx %s", method, signed.Hash().Hex())
	}
	return nil
}

var _ BalanceReader = (*Client)(nil)
