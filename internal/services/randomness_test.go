package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wager-settlement-backend/internal/chain"
	"wager-settlement-backend/internal/models"
)

func TestChainRandomnessUsesBlockHash(t *testing.T) {
	hash := common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000aa")
	c := &mockChain{}
	c.On("LatestHeader", mock.Anything).Return(chain.Header{Number: 77, Hash: hash}, nil)

	seed, err := NewChainRandomness(c, time.Second, true).NextSeed(context.Background(), alice)
	require.NoError(t, err)
	assert.False(t, seed.Fallback())
	assert.Equal(t, [32]byte(hash), seed.Value)
	require.NotNil(t, seed.Provenance.BlockNumber)
	assert.Equal(t, uint64(77), *seed.Provenance.BlockNumber)
	assert.Equal(t, hash.Hex(), *seed.Provenance.BlockHash)
	assert.Equal(t, hash.Hex(), seed.Source())
	c.AssertExpectations(t)
}

func TestChainRandomnessFallback(t *testing.T) {
	c := &mockChain{}
	c.On("LatestHeader", mock.Anything).Return(chain.Header{}, errors.New("rpc down"))

	r := NewChainRandomness(c, time.Second, false)
	fixed := time.UnixMilli(1_700_000_000_000)
	r.now = func() time.Time { return fixed }

	seed, err := r.NextSeed(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, seed.Fallback())
	assert.Nil(t, seed.Provenance.BlockNumber)
	assert.True(t, strings.HasPrefix(seed.Provenance.FallbackID, "fallback:"))

	again, err := r.NextSeed(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, seed.Provenance.FallbackID, again.Provenance.FallbackID, "id is derived from wallet and time")

	other, err := r.NextSeed(context.Background(), bob)
	require.NoError(t, err)
	assert.NotEqual(t, seed.Provenance.FallbackID, other.Provenance.FallbackID)
}

func TestChainRandomnessStrictRejectsFallback(t *testing.T) {
	c := &mockChain{}
	c.On("LatestHeader", mock.Anything).Return(chain.Header{}, context.DeadlineExceeded)

	_, err := NewChainRandomness(c, time.Millisecond, true).NextSeed(context.Background(), alice)
	assert.ErrorIs(t, err, models.ErrUnavailable)

	_, err = NewChainRandomness(nil, 0, true).NextSeed(context.Background(), alice)
	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestChainRandomnessWithoutClient(t *testing.T) {
	seed, err := NewChainRandomness(nil, 0, false).NextSeed(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, seed.Fallback())
}
