package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wager-settlement-backend/internal/chain"
	"wager-settlement-backend/internal/models"
	"wager-settlement-backend/internal/store"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
	token = "0x3333333333333333333333333333333333333333"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(context.Background(), store.Config{
		Driver:  store.DriverSQLite,
		DSN:     fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name),
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type mockChain struct {
	mock.Mock
}

func (m *mockChain) LatestHeader(ctx context.Context) (chain.Header, error) {
	args := m.Called(ctx)
	return args.Get(0).(chain.Header), args.Error(1)
}

func (m *mockChain) Reserves(ctx context.Context, amm, token common.Address) (chain.Reserves, error) {
	args := m.Called(ctx, amm, token)
	return args.Get(0).(chain.Reserves), args.Error(1)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, message, signature, wallet string, maxAge time.Duration) error {
	return m.Called(ctx, message, signature, wallet, maxAge).Error(0)
}

// fixedSeed always returns the same seed.
type fixedSeed struct {
	seed models.Seed
	err  error
}

func (f fixedSeed) NextSeed(context.Context, string) (models.Seed, error) {
	return f.seed, f.err
}

func blockSeed(lastByte byte, number uint64) models.Seed {
	var v [32]byte
	v[31] = lastByte
	hash := common.Hash(v).Hex()
	return models.Seed{
		Value:      v,
		Provenance: models.Provenance{BlockNumber: &number, BlockHash: &hash},
	}
}

// scriptedIndices replays a fixed index sequence.
type scriptedIndices struct {
	seq []int
	pos int
}

func (s *scriptedIndices) IntN(n int) int {
	v := s.seq[s.pos%len(s.seq)] % n
	s.pos++
	return v
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []SettlementEvent
}

func (r *recordingBroadcaster) BroadcastSettlement(e SettlementEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingBroadcaster) Events() []SettlementEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SettlementEvent(nil), r.events...)
}
