package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wager-settlement-backend/internal/models"
)

func newMinesService(t *testing.T, mines ...int) (*MinesService, *recordingBroadcaster) {
	t.Helper()
	b := &recordingBroadcaster{}
	svc := NewMinesService(openStore(t), fixedSeed{seed: blockSeed(2, 10)}, PermissiveVerifier{}, b, time.Minute)
	svc.indexSource = func(models.Seed) (IndexSource, error) {
		// leading duplicate exercises rejection sampling
		return &scriptedIndices{seq: append([]int{mines[0]}, mines...)}, nil
	}
	return svc, b
}

func startSession(t *testing.T, svc *MinesService, bet string, minesCount int) uint64 {
	t.Helper()
	resp, err := svc.Start(context.Background(), alice, &models.MinesStartRequest{
		BetAmount:         bet,
		StakeTokenAddress: token,
		MinesCount:        minesCount,
	})
	require.NoError(t, err)
	assert.Equal(t, models.GridSize, resp.TotalTiles)
	assert.Equal(t, minesCount, resp.MinesCount)
	return resp.SessionID
}

func reveal(svc *MinesService, id uint64, idx int) (*models.MinesRevealResponse, error) {
	return svc.Reveal(context.Background(), alice, &models.MinesRevealRequest{SessionID: id, TileIndex: &idx})
}

func TestGenerateGridRejectsDuplicates(t *testing.T) {
	grid, err := GenerateGrid(&scriptedIndices{seq: []int{4, 4, 4, 9, 4, 13}}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, grid.MineCount())
	assert.Equal(t, []int{4, 9, 13}, grid.MinePositions())
}

func TestGenerateGridMineCountInvariant(t *testing.T) {
	for count := models.MinMines; count <= models.MaxMines; count++ {
		src, err := seededIndexSource(blockSeed(byte(count), uint64(count)))
		require.NoError(t, err)
		grid, err := GenerateGrid(src, count)
		require.NoError(t, err)
		assert.Equal(t, count, grid.MineCount())
		require.NoError(t, grid.Validate())
	}

	_, err := GenerateGrid(&scriptedIndices{seq: []int{1}}, 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = GenerateGrid(&scriptedIndices{seq: []int{1}}, 25)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestMinesStartValidation(t *testing.T) {
	svc, _ := newMinesService(t, 0, 1, 2)
	ctx := context.Background()

	cases := []models.MinesStartRequest{
		{BetAmount: "0", StakeTokenAddress: token, MinesCount: 3},
		{BetAmount: "-1", StakeTokenAddress: token, MinesCount: 3},
		{BetAmount: "abc", StakeTokenAddress: token, MinesCount: 3},
		{BetAmount: "1", StakeTokenAddress: "not-an-address", MinesCount: 3},
		{BetAmount: "1", StakeTokenAddress: token, MinesCount: 0},
		{BetAmount: "1", StakeTokenAddress: token, MinesCount: 25},
	}
	for _, req := range cases {
		req := req
		_, err := svc.Start(ctx, alice, &req)
		assert.ErrorIs(t, err, models.ErrInvalidInput, "%+v", req)
	}
}

func TestMinesStartHidesMines(t *testing.T) {
	svc, _ := newMinesService(t, 0, 1, 2)
	id := startSession(t, svc, "2", 3)

	view, err := svc.Get(context.Background(), alice, id)
	require.NoError(t, err)
	assert.Empty(t, view.MinePositions)
	assert.Equal(t, models.MinesStatusActive, view.Status)

	active, err := svc.Active(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = svc.Get(context.Background(), bob, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMinesScenarioAAndB(t *testing.T) {
	svc, b := newMinesService(t, 0, 1, 2)
	id := startSession(t, svc, "2", 3)

	expected := []string{"1.1", "1.2", "1.3", "1.4", "1.5"}
	for i, want := range expected {
		resp, err := reveal(svc, id, 3+i)
		require.NoError(t, err)
		assert.False(t, resp.GameOver)
		assert.False(t, resp.IsMine)
		assert.Equal(t, models.MinesStatusActive, resp.Status)
		assert.True(t, resp.CurrentMultiplier.Equal(decimal.RequireFromString(want)), "reveal %d: %s", i, resp.CurrentMultiplier)
		assert.Empty(t, resp.MinePositions)
	}

	var last *models.MinesRevealResponse
	prev := decimal.RequireFromString("1.5")
	for idx := 8; idx < models.GridSize; idx++ {
		resp, err := reveal(svc, id, idx)
		require.NoError(t, err)
		assert.True(t, resp.CurrentMultiplier.GreaterThanOrEqual(prev))
		prev = resp.CurrentMultiplier
		last = resp
	}
	require.NotNil(t, last)
	assert.True(t, last.GameOver)
	assert.Equal(t, models.MinesStatusWon, last.Status)
	assert.Equal(t, []int{0, 1, 2}, last.MinePositions)
	assert.Len(t, last.RevealedIndices, 22)

	events := b.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventMinesSettled, events[0].Type)
	assert.Equal(t, id, events[0].ID)
}

func TestMinesScenarioC(t *testing.T) {
	svc, _ := newMinesService(t, 7, 11, 19)
	id := startSession(t, svc, "2", 3)

	resp, err := reveal(svc, id, 11)
	require.NoError(t, err)
	assert.True(t, resp.GameOver)
	assert.True(t, resp.IsMine)
	assert.Equal(t, models.MinesStatusLost, resp.Status)
	assert.Equal(t, []int{7, 11, 19}, resp.MinePositions)
	assert.True(t, resp.CurrentMultiplier.Equal(decimal.NewFromInt(1)))

	_, err = svc.Cashout(context.Background(), alice, &models.MinesCashoutRequest{SessionID: id})
	assert.ErrorIs(t, err, models.ErrInvalidState)

	view, err := svc.Get(context.Background(), alice, id)
	require.NoError(t, err)
	assert.False(t, view.CashoutAmount.Valid)
	assert.Equal(t, []int{7, 11, 19}, view.MinePositions)
}

func TestMinesRevealErrors(t *testing.T) {
	svc, _ := newMinesService(t, 0, 1, 2)
	id := startSession(t, svc, "1", 3)

	_, err := reveal(svc, id, 5)
	require.NoError(t, err)
	_, err = reveal(svc, id, 5)
	assert.ErrorIs(t, err, models.ErrInvalidTile)
	_, err = reveal(svc, id, 25)
	assert.ErrorIs(t, err, models.ErrInvalidTile)
	_, err = reveal(svc, id, -1)
	assert.ErrorIs(t, err, models.ErrInvalidTile)
	_, err = reveal(svc, id+1, 6)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Reveal(context.Background(), bob, &models.MinesRevealRequest{SessionID: id, TileIndex: new(int)})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Reveal(context.Background(), alice, &models.MinesRevealRequest{SessionID: id})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestMinesScenarioEConcurrentCashout(t *testing.T) {
	svc, b := newMinesService(t, 0, 1, 2)
	id := startSession(t, svc, "2", 3)
	for idx := 3; idx < 8; idx++ {
		_, err := reveal(svc, id, idx)
		require.NoError(t, err)
	}

	var (
		wg      sync.WaitGroup
		results [2]*models.MinesCashoutResponse
		errs    [2]error
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Cashout(context.Background(), alice, &models.MinesCashoutRequest{SessionID: id})
		}(i)
	}
	wg.Wait()

	var winners int
	for i := range results {
		if errs[i] == nil {
			winners++
			assert.True(t, results[i].CashoutAmount.Equal(decimal.NewFromInt(3)))
			assert.True(t, results[i].Multiplier.Equal(decimal.RequireFromString("1.5")))
			continue
		}
		kind := models.KindOf(errs[i])
		assert.Contains(t, []models.ErrorKind{models.KindConflict, models.KindInvalidState}, kind)
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, b.Events(), 1)

	view, err := svc.Get(context.Background(), alice, id)
	require.NoError(t, err)
	assert.Equal(t, models.MinesStatusCashedOut, view.Status)
	assert.True(t, view.CashoutAmount.Decimal.Equal(decimal.NewFromInt(3)))
}

func TestMinesConcurrentDuplicateReveal(t *testing.T) {
	svc, _ := newMinesService(t, 0, 1, 2)
	id := startSession(t, svc, "2", 3)

	const callers = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		kind = map[models.ErrorKind]int{}
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reveal(svc, id, 7)
			mu.Lock()
			kind[models.KindOf(err)]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, kind[""])
	assert.Equal(t, callers-1, kind[models.KindInvalidTile]+kind[models.KindConflict])

	view, err := svc.Get(context.Background(), alice, id)
	require.NoError(t, err)
	assert.Equal(t, models.IndexList{7}, view.RevealedIndices)
	assert.True(t, view.CurrentMultiplier.Equal(decimal.RequireFromString("1.1")))
	assert.Equal(t, models.MinesStatusActive, view.Status)
}

func TestMinesRevealRacingCashoutIsLinearizable(t *testing.T) {
	for round := 0; round < 5; round++ {
		t.Run(fmt.Sprintf("round_%d", round), func(t *testing.T) {
			svc, _ := newMinesService(t, 0, 1, 2)
			id := startSession(t, svc, "2", 3)

			var (
				wg        sync.WaitGroup
				revealErr error
				cashout   *models.MinesCashoutResponse
				cashErr   error
			)
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, revealErr = reveal(svc, id, 9)
			}()
			go func() {
				defer wg.Done()
				cashout, cashErr = svc.Cashout(context.Background(), alice, &models.MinesCashoutRequest{SessionID: id})
			}()
			wg.Wait()

			require.NoError(t, cashErr)
			view, err := svc.Get(context.Background(), alice, id)
			require.NoError(t, err)
			assert.Equal(t, models.MinesStatusCashedOut, view.Status)

			if revealErr == nil {
				// reveal committed first
				assert.Equal(t, models.IndexList{9}, view.RevealedIndices)
				assert.True(t, cashout.CashoutAmount.Equal(decimal.RequireFromString("2.2")))
			} else {
				assert.Contains(t, []models.ErrorKind{models.KindConflict, models.KindInvalidState}, models.KindOf(revealErr))
				assert.Empty(t, view.RevealedIndices)
				assert.True(t, cashout.CashoutAmount.Equal(decimal.NewFromInt(2)))
			}
			assert.True(t, view.CashoutAmount.Decimal.Equal(cashout.CashoutAmount))
		})
	}
}

func TestMinesVerifierAlwaysInvoked(t *testing.T) {
	svc, _ := newMinesService(t, 0, 1, 2)
	id := startSession(t, svc, "1", 3)

	v := &mockVerifier{}
	v.On("Verify", mock.Anything, "hello", "0xsig", alice, time.Minute).Return(models.ErrUnauthorized)
	svc.verifier = v

	idx := 4
	_, err := svc.Reveal(context.Background(), alice, &models.MinesRevealRequest{
		Signed:    models.Signed{Message: "hello", Signature: "0xsig"},
		SessionID: id,
		TileIndex: &idx,
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Cashout(context.Background(), alice, &models.MinesCashoutRequest{
		Signed:    models.Signed{Message: "hello", Signature: "0xsig"},
		SessionID: id,
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	v.AssertNumberOfCalls(t, "Verify", 2)

	view, err := svc.Get(context.Background(), alice, id)
	require.NoError(t, err)
	assert.Empty(t, view.RevealedIndices)
	assert.Equal(t, models.MinesStatusActive, view.Status)
}

func TestMinesStartPropagatesStrictRandomness(t *testing.T) {
	svc, _ := newMinesService(t, 0)
	svc.random = fixedSeed{err: models.ErrUnavailable}

	_, err := svc.Start(context.Background(), alice, &models.MinesStartRequest{
		BetAmount: "1", StakeTokenAddress: token, MinesCount: 1,
	})
	assert.ErrorIs(t, err, models.ErrUnavailable)
}
