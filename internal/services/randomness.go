package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"wager-settlement-backend/internal/chain"
	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/models"
)

// RandomnessSource supplies seeds for Mines grids and coin flips.
type RandomnessSource interface {
	NextSeed(ctx context.Context, wallet string) (models.Seed, error)
}

// fallbackNamespace scopes synthetic provenance ids.
var fallbackNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("wager-settlement/randomness-fallback"))

// ChainRandomness uses the latest block hash as the seed. When the chain does
// not answer within timeout it falls back to a local pseudo-random value
// tagged with a synthetic id, unless strict is set.
type ChainRandomness struct {
	client  chain.Client
	timeout time.Duration
	strict  bool
	now     func() time.Time
}

func NewChainRandomness(client chain.Client, timeout time.Duration, strict bool) *ChainRandomness {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ChainRandomness{client: client, timeout: timeout, strict: strict, now: time.Now}
}

func (r *ChainRandomness) NextSeed(ctx context.Context, wallet string) (models.Seed, error) {
	var cause error
	if r.client != nil {
		seed, err := r.fromChain(ctx)
		if err == nil {
			return seed, nil
		}
		cause = err
	} else {
		cause = fmt.Errorf("no rpc client configured")
	}

	if r.strict {
		return models.Seed{}, fmt.Errorf("%w: randomness: %v", models.ErrUnavailable, cause)
	}

	seed := r.fallback(wallet)
	logging.Warn(ctx).Err(cause).
		Str("wallet", wallet).
		Str("fallback_id", seed.Provenance.FallbackID).
		Msg("chain randomness unavailable, using fallback seed")
	return seed, nil
}

func (r *ChainRandomness) fromChain(ctx context.Context) (models.Seed, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	header, err := r.client.LatestHeader(ctx)
	if err != nil {
		return models.Seed{}, err
	}
	number := header.Number
	hash := header.Hash.Hex()
	return models.Seed{
		Value: header.Hash,
		Provenance: models.Provenance{
			BlockNumber: &number,
			BlockHash:   &hash,
		},
	}, nil
}

// fallback is not provably fair. The provenance id is derived from wallet
// and time only so it can be correlated with logs.
func (r *ChainRandomness) fallback(wallet string) models.Seed {
	var value [32]byte
	for i := 0; i < len(value); i += 8 {
		binary.BigEndian.PutUint64(value[i:], rand.Uint64())
	}
	name := fmt.Sprintf("%s:%d", wallet, r.now().UnixMilli())
	return models.Seed{
		Value: value,
		Provenance: models.Provenance{
			FallbackID: "fallback:" + uuid.NewSHA1(fallbackNamespace, []byte(name)).String(),
		},
	}
}
