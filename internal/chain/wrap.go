package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

const wrappedABIJSON = `[
{"inputs":[],"name":"deposit","outputs":[],"stateMutability":"payable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var wrappedABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(wrappedABIJSON))
	if err != nil {
		panic("failed to parse wrapped-token ABI: " + err.Error())
	}
	wrappedABI = parsed
}

// Wrapped is the wrapped-native token client.
type Wrapped struct {
	client   *Client
	contract common.Address
	logger   zerolog.Logger
}

// NewWrapped binds the wrapped-native token contract.
func NewWrapped(client *Client, contract common.Address, logger zerolog.Logger) *Wrapped {
	return &Wrapped{
		client:   client,
		contract: contract,
		logger:   logger.With().Str("component", "wrapped_native").Logger(),
	}
}

// Wrap converts native coin into the wrapped token by attaching the amount
// as transaction value.
func (w *Wrapped) Wrap(ctx context.Context, amount *big.Int) error {
	w.logger.Info().Str("amount", amount.String()).Msg("wrapping native coin")
	return w.client.transact(ctx, w.contract, wrappedABI, amount, "deposit")
}

// Unwrap converts wrapped tokens back into native coin.
func (w *Wrapped) Unwrap(ctx context.Context, amount *big.Int) error {
	return w.client.transact(ctx, w.contract, wrappedABI, nil, "withdraw", amount)
}

// Address is the wrapped token contract address.
func (w *Wrapped) Address() common.Address {
	return w.contract
}

var _ WrappedNative = (*Wrapped)(nil)
