package services

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wager-settlement-backend/internal/chain"
	"wager-settlement-backend/internal/models"
)

const amm = "0x00000000000000000000000000000000000000aa"

func TestConstantProductOut(t *testing.T) {
	out := ConstantProductOut(decimal.NewFromInt(1000), decimal.NewFromInt(5000), decimal.NewFromInt(100), 100)
	assert.Equal(t, "450", out.String())

	noFee := ConstantProductOut(decimal.NewFromInt(1000), decimal.NewFromInt(5000), decimal.NewFromInt(1000), 0)
	assert.Equal(t, "2500", noFee.String())
}

func TestQuoteBuyAndSell(t *testing.T) {
	c := &mockChain{}
	c.On("Reserves", mock.Anything, common.HexToAddress(amm), common.HexToAddress(token)).
		Return(chain.Reserves{OG: big.NewInt(1000), Token: big.NewInt(5000)}, nil)
	svc := NewQuoteService(c, amm, 100)

	buy, err := svc.Quote(context.Background(), token, "buy", "100")
	require.NoError(t, err)
	assert.Equal(t, "450", buy.AmountOut)
	assert.Equal(t, "1000", buy.OGReserve)
	assert.Equal(t, "5000", buy.TokenReserve)

	sell, err := svc.Quote(context.Background(), token, "SELL", "500")
	require.NoError(t, err)
	// 1000 - 5e6/(5000+495) = 90.08...
	assert.Equal(t, "90", sell.AmountOut)
	assert.Equal(t, QuoteSideSell, sell.Side)
}

func TestQuoteErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewQuoteService(nil, amm, 100).Quote(ctx, token, "buy", "1")
	assert.ErrorIs(t, err, models.ErrUnavailable)

	c := &mockChain{}
	c.On("Reserves", mock.Anything, mock.Anything, mock.Anything).Return(chain.Reserves{}, errors.New("rpc down")).Once()
	svc := NewQuoteService(c, amm, 100)

	_, err = svc.Quote(ctx, token, "buy", "1")
	assert.ErrorIs(t, err, models.ErrUnavailable)

	_, err = svc.Quote(ctx, "nope", "buy", "1")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = svc.Quote(ctx, token, "hold", "1")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = svc.Quote(ctx, token, "buy", "-1")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	c.On("Reserves", mock.Anything, mock.Anything, mock.Anything).
		Return(chain.Reserves{OG: big.NewInt(0), Token: big.NewInt(10)}, nil).Once()
	_, err = svc.Quote(ctx, token, "buy", "1")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}
