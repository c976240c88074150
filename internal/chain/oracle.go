package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

const oracleABIJSON = `[
{"inputs":[],"name":"latestAnswer","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

var oracleABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(oracleABIJSON))
	if err != nil {
		panic("failed to parse oracle ABI: " + err.Error())
	}
	oracleABI = parsed
}

// Oracle reads exchange-rate samples from the price feed contract.
type Oracle struct {
	client   *Client
	contract common.Address
	logger   zerolog.Logger

	decimalsOnce sync.Once
	decimals     uint8
	decimalsErr  error
}

// NewOracle binds the price feed contract.
func NewOracle(client *Client, contract common.Address, logger zerolog.Logger) *Oracle {
	return &Oracle{
		client:   client,
		contract: contract,
		logger:   logger.With().Str("component", "rate_oracle").Logger(),
	}
}

// LatestRate returns the current answer and its decimal precision. The
// precision is immutable on the feed, so it is fetched once and cached.
func (o *Oracle) LatestRate(ctx context.Context) (*big.Int, uint8, error) {
	o.decimalsOnce.Do(func() {
		outputs, err := o.client.call(ctx, o.contract, oracleABI, "decimals")
		if err != nil {
			o.decimalsErr = err
			return
		}
		decimals, ok := outputs[0].(uint8)
		if !ok {
			o.decimalsErr = errors.New("unexpected decimals response")
			return
		}
		o.decimals = decimals
	})
	if o.decimalsErr != nil {
		return nil, 0, o.decimalsErr
	}

	outputs, err := o.client.call(ctx, o.contract, oracleABI, "latestAnswer")
	if err != nil {
		return nil, 0, err
	}
	answer, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, 0, errors.New("unexpected latestAnswer response")
	}
	if answer.Sign() <= 0 {
		return nil, 0, errors.New("oracle returned non-positive answer")
	}

	return answer, o.decimals, nil
}

var _ RateOracle = (*Oracle)(nil)
