package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

const tokenABIJSON = `[
{"inputs":[],"name":"totalSupply","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"burn","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var tokenABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(tokenABIJSON))
	if err != nil {
		panic("failed to parse token ABI: " + err.Error())
	}
	tokenABI = parsed
}

// Token is the stablecoin ledger client. The treasury only reads total
// supply and burns from its own balance; all other supply accounting is the
// token contract's concern.
type Token struct {
	client   *Client
	contract common.Address
	logger   zerolog.Logger
}

// NewToken binds the stablecoin contract.
func NewToken(client *Client, contract common.Address, logger zerolog.Logger) *Token {
	return &Token{
		client:   client,
		contract: contract,
		logger:   logger.With().Str("component", "stable_token").Logger(),
	}
}

// TotalSupply returns the total stablecoin supply in atoms.
func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	outputs, err := t.client.call(ctx, t.contract, tokenABI, "totalSupply")
	if err != nil {
		return nil, err
	}
	supply, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, errors.New("unexpected totalSupply response")
	}
	return supply, nil
}

// Burn destroys the given amount from the treasury account.
func (t *Token) Burn(ctx context.Context, amount *big.Int) error {
	t.logger.Info().Str("amount", amount.String()).Msg("burning stablecoin")
	return t.client.transact(ctx, t.contract, tokenABI, nil, "burn", amount)
}

// Address is the stablecoin contract address.
func (t *Token) Address() common.Address {
	return t.contract
}

var _ Ledger = (*Token)(nil)
