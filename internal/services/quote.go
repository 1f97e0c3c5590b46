package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"wager-settlement-backend/internal/chain"
	"wager-settlement-backend/internal/models"
)

const (
	QuoteSideBuy  = "buy"
	QuoteSideSell = "sell"

	bpsDenominator = 10000
	quoteTimeout   = 5 * time.Second
)

// QuoteService prices bonding-curve trades for display only. Execution
// happens on chain.
type QuoteService struct {
	client chain.Client
	amm    common.Address
	feeBps int64
}

func NewQuoteService(client chain.Client, amm string, feeBps int64) *QuoteService {
	return &QuoteService{client: client, amm: common.HexToAddress(amm), feeBps: feeBps}
}

func (s *QuoteService) Quote(ctx context.Context, token, side, amount string) (*models.Quote, error) {
	if s.client == nil || s.amm == (common.Address{}) {
		return nil, fmt.Errorf("%w: quotes are not configured", models.ErrUnavailable)
	}
	tokenAddr, err := models.NormalizeWallet(token)
	if err != nil {
		return nil, fmt.Errorf("%w: token is not a valid address", models.ErrInvalidInput)
	}
	side = strings.ToLower(strings.TrimSpace(side))
	if side != QuoteSideBuy && side != QuoteSideSell {
		return nil, fmt.Errorf("%w: side must be buy or sell", models.ErrInvalidInput)
	}
	in, err := models.ParseAmount("amount", amount)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, quoteTimeout)
	defer cancel()

	reserves, err := s.client.Reserves(ctx, s.amm, common.HexToAddress(tokenAddr))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}
	og := decimal.NewFromBigInt(reserves.OG, 0)
	tok := decimal.NewFromBigInt(reserves.Token, 0)
	if !og.IsPositive() || !tok.IsPositive() {
		return nil, fmt.Errorf("%w: pool has no liquidity", models.ErrInvalidState)
	}

	var out decimal.Decimal
	if side == QuoteSideBuy {
		out = ConstantProductOut(og, tok, in, s.feeBps)
	} else {
		out = ConstantProductOut(tok, og, in, s.feeBps)
	}

	return &models.Quote{
		Token:        tokenAddr,
		Side:         side,
		AmountIn:     in.String(),
		AmountOut:    out.String(),
		OGReserve:    og.String(),
		TokenReserve: tok.String(),
		FeeBps:       s.feeBps,
	}, nil
}

// ConstantProductOut is reserveOut - k/(reserveIn + amountIn*(1-fee)),
// truncated to whole units.
func ConstantProductOut(reserveIn, reserveOut, amountIn decimal.Decimal, feeBps int64) decimal.Decimal {
	k := reserveIn.Mul(reserveOut)
	feeFactor := decimal.NewFromInt(bpsDenominator - feeBps).Div(decimal.NewFromInt(bpsDenominator))
	newIn := reserveIn.Add(amountIn.Mul(feeFactor))
	out := reserveOut.Sub(k.Div(newIn)).Truncate(0)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
