package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gmsdomain "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/domain"
	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/domain"
	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/repository/memory"
	"github.com/jbdekhoooff08512/Win5x/internal/modules/wallet"
	"github.com/jbdekhoooff08512/Win5x/pkg/service"
	"github.com/jbdekhoooff08512/Win5x/pkg/service/win5x"
)

// fakeGMS serves a fixed round view and records accepted bets.
type fakeGMS struct {
	round     win5x.RoundView
	roundErr  error
	recordErr error
	recorded  int
}

func (f *fakeGMS) GetCurrentRound(ctx context.Context) (win5x.RoundView, error) {
	return f.round, f.roundErr
}

func (f *fakeGMS) RecordBet(ctx context.Context, roundNumber, userID, amount int64, coveredNumbers []int) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded++
	return nil
}

func (f *fakeGMS) Control(ctx context.Context, action win5x.AdminAction) error {
	return nil
}

func (f *fakeGMS) RoundHistory(ctx context.Context, limit int) ([]win5x.RoundRecord, error) {
	return nil, nil
}

// fakeGateway swallows push events, counting them by name.
type fakeGateway struct {
	mu     sync.Mutex
	events []service.Event
}

func (f *fakeGateway) Broadcast(ctx context.Context, gameCode string, event service.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeGateway) SendToUser(ctx context.Context, userID int64, gameCode string, event service.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeGateway) named(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, event := range f.events {
		if event.EventName() == name {
			count++
		}
	}
	return count
}

// memOrders is an in-memory BetOrderRepository with the same exactly-once
// Settle guard the real one has.
type memOrders struct {
	mu        sync.Mutex
	orders    map[int64]*domain.BetOrder
	createErr error
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[int64]*domain.BetOrder)}
}

func (m *memOrders) Create(ctx context.Context, order *domain.BetOrder) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *order
	m.orders[order.OrderID] = &clone
	return nil
}

func (m *memOrders) Settle(ctx context.Context, orderID int64, status domain.BetOrderStatus, payout int64, settledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok || order.Status != domain.BetOrderStatusPending {
		return nil
	}
	order.Status = status
	order.Payout = payout
	order.SettledAt = &settledAt
	return nil
}

func (m *memOrders) FindPendingByRound(ctx context.Context, roundNumber int64) ([]*domain.BetOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.BetOrder
	for _, order := range m.orders {
		if order.RoundNumber == roundNumber && order.Status == domain.BetOrderStatusPending {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memOrders) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.BetOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.BetOrder
	for _, order := range m.orders {
		if order.UserID == userID && len(out) < limit {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memOrders) TotalsByRound(ctx context.Context, roundNumber int64) (domain.RoundSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := domain.RoundSummary{}
	players := make(map[int64]struct{})
	for _, order := range m.orders {
		if order.RoundNumber != roundNumber || order.Status == domain.BetOrderStatusRefunded {
			continue
		}
		summary.Bets++
		summary.BetAmount += order.Amount
		summary.Payout += order.Payout
		players[order.UserID] = struct{}{}
		if order.Status == domain.BetOrderStatusWon {
			summary.Winners++
		}
	}
	summary.Players = len(players)
	return summary, nil
}

func (m *memOrders) get(orderID int64) *domain.BetOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := m.orders[orderID]
	if order == nil {
		return nil
	}
	clone := *order
	return &clone
}

// flakyWallet delegates to the mock wallet but fails credits on demand.
type flakyWallet struct {
	*wallet.MockService
	mu          sync.Mutex
	failCredits bool
}

func (w *flakyWallet) Credit(ctx context.Context, userID int64, walletName service.Wallet, amount int64, reason string) (int64, error) {
	w.mu.Lock()
	fail := w.failCredits
	w.mu.Unlock()
	if fail {
		return 0, errors.New("wallet provider timeout")
	}
	return w.MockService.Credit(ctx, userID, walletName, amount, reason)
}

func (w *flakyWallet) setFailCredits(fail bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failCredits = fail
}

type fixture struct {
	uc      *GSUseCase
	gms     *fakeGMS
	gateway *fakeGateway
	wallet  *flakyWallet
	orders  *memOrders
	betRepo *memory.BetRepository
}

func newFixture() *fixture {
	gms := &fakeGMS{round: win5x.RoundView{
		RoundNumber: 1,
		Phase:       string(gmsdomain.PhaseBetting),
		BettingEnd:  time.Now().Add(30 * time.Second),
	}}
	gateway := &fakeGateway{}
	w := &flakyWallet{MockService: wallet.NewMockService()}
	orders := newMemOrders()
	betRepo := memory.NewBetRepository()

	uc := NewGSUseCase(betRepo, orders, gms, w, gateway, 10, 5000, 5)
	uc.creditBackoff = time.Millisecond
	return &fixture{uc: uc, gms: gms, gateway: gateway, wallet: w, orders: orders, betRepo: betRepo}
}

func placeBet(t *testing.T, f *fixture, userID int64, betType, value string, amount int64) *domain.Bet {
	t.Helper()
	bet, _, err := f.uc.PlaceBet(context.Background(), win5x.PlaceBetReq{
		UserID: userID, BetType: betType, Value: value, Amount: amount,
	})
	require.NoError(t, err)
	return bet
}

func bettingBalance(t *testing.T, f *fixture, userID int64) int64 {
	t.Helper()
	balances, err := f.wallet.GetBalances(context.Background(), userID)
	require.NoError(t, err)
	return balances[service.WalletBetting]
}

func gamingBalance(t *testing.T, f *fixture, userID int64) int64 {
	t.Helper()
	balances, err := f.wallet.GetBalances(context.Background(), userID)
	require.NoError(t, err)
	return balances[service.WalletGaming]
}

func TestPlaceBet_Success(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 1000)

	bet, balance, err := f.uc.PlaceBet(context.Background(), win5x.PlaceBetReq{
		UserID: 1001, BetType: "number", Value: "7", Amount: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)
	assert.Equal(t, int64(500), bet.PotentialPayout)
	assert.Equal(t, 1, f.gms.recorded)

	order := f.orders.get(bet.BetID)
	require.NotNil(t, order)
	assert.Equal(t, domain.BetOrderStatusPending, order.Status)
	assert.Equal(t, "betting", order.Wallet)

	bets, err := f.betRepo.GetUserBets(context.Background(), 1, 1001)
	require.NoError(t, err)
	assert.Len(t, bets, 1)
}

func TestPlaceBet_AmountOutOfRange(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 100000)

	_, _, err := f.uc.PlaceBet(context.Background(), win5x.PlaceBetReq{
		UserID: 1001, BetType: "number", Value: "7", Amount: 5,
	})
	assert.ErrorIs(t, err, ErrAmountRange)

	_, _, err = f.uc.PlaceBet(context.Background(), win5x.PlaceBetReq{
		UserID: 1001, BetType: "number", Value: "7", Amount: 6000,
	})
	assert.ErrorIs(t, err, ErrAmountRange)

	assert.Equal(t, int64(100000), bettingBalance(t, f, 1001), "rejected bet must not touch the wallet")
}

func TestPlaceBet_BettingClosed(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 1000)
	f.gms.round.Phase = string(gmsdomain.PhaseSpinning)

	_, _, err := f.uc.PlaceBet(context.Background(), win5x.PlaceBetReq{
		UserID: 1001, BetType: "number", Value: "7", Amount: 100,
	})
	assert.ErrorIs(t, err, ErrBettingClosed)
	assert.Equal(t, int64(1000), bettingBalance(t, f, 1001))
	assert.Equal(t, 0, f.gms.recorded)
}

func TestPlaceBet_InsufficientBalance(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 50)

	_, _, err := f.uc.PlaceBet(context.Background(), win5x.PlaceBetReq{
		UserID: 1001, BetType: "number", Value: "7", Amount: 100,
	})
	assert.ErrorIs(t, err, service.ErrInsufficientBalance)
	assert.Equal(t, int64(50), bettingBalance(t, f, 1001))

	pending, err := f.orders.FindPendingByRound(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, pending, "no order row without a successful debit")
}

func TestPlaceBet_InvalidValue(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 1000)

	_, _, err := f.uc.PlaceBet(context.Background(), win5x.PlaceBetReq{
		UserID: 1001, BetType: "odd_even", Value: "red", Amount: 100,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBetValue)
	assert.Equal(t, int64(1000), bettingBalance(t, f, 1001))
}

func TestPlaceBet_OrderCreateFailureRefundsDebit(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 1000)
	f.orders.createErr = errors.New("db down")

	_, _, err := f.uc.PlaceBet(context.Background(), win5x.PlaceBetReq{
		UserID: 1001, BetType: "number", Value: "7", Amount: 100,
	})
	require.Error(t, err)
	assert.Equal(t, int64(1000), bettingBalance(t, f, 1001), "stake must be credited back")

	// The ledger shows the debit and the compensating credit.
	ledger := f.wallet.Ledger()
	require.Len(t, ledger, 2)
	assert.Equal(t, int64(-100), ledger[0].Amount)
	assert.Equal(t, int64(100), ledger[1].Amount)
	assert.Contains(t, ledger[1].Reason, "bet_refund:")
}

func TestPlaceBet_LateRejectionByScheduler(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 1000)
	f.gms.recordErr = errors.New("betting window closed")

	_, _, err := f.uc.PlaceBet(context.Background(), win5x.PlaceBetReq{
		UserID: 1001, BetType: "number", Value: "7", Amount: 100,
	})
	assert.ErrorIs(t, err, ErrBettingClosed)
	assert.Equal(t, int64(1000), bettingBalance(t, f, 1001))

	// The order row exists but is closed out as refunded so settlement
	// never picks it up.
	pending, err := f.orders.FindPendingByRound(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPlaceBet_RejectsPastDeadlineBeforeDebit(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 1000)

	// The scheduler has not flipped the phase yet, but the window is over.
	f.gms.round.BettingEnd = time.Now().Add(-time.Second)
	f.gms.recordErr = errors.New("betting window closed")

	_, _, err := f.uc.PlaceBet(context.Background(), win5x.PlaceBetReq{
		UserID: 1001, BetType: "number", Value: "7", Amount: 100,
	})
	assert.ErrorIs(t, err, ErrBettingClosed)

	// No debit, no refund, no order row: the wallet never moved.
	assert.Empty(t, f.wallet.Ledger())
	assert.Equal(t, int64(1000), bettingBalance(t, f, 1001))
	pending, err := f.orders.FindPendingByRound(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Zero(t, f.gms.recorded)
}

func TestSettleRound_PaysWinnersIntoGamingWallet(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 1000)
	f.wallet.SetBalance(1002, service.WalletBetting, 1000)
	f.wallet.SetBalance(1003, service.WalletBetting, 1000)

	winner := placeBet(t, f, 1001, "number", "4", 100)
	evenWinner := placeBet(t, f, 1002, "odd_even", "even", 200)
	loser := placeBet(t, f, 1003, "number", "9", 150)

	totals, err := f.uc.SettleRound(context.Background(), 1, 4)
	require.NoError(t, err)

	assert.Equal(t, 3, totals.Bets)
	assert.Equal(t, 3, totals.Players)
	assert.Equal(t, 2, totals.Winners)
	assert.Equal(t, int64(450), totals.BetAmount)
	assert.Equal(t, int64(1500), totals.Payout)
	assert.Equal(t, int64(-1050), totals.HouseProfitLoss())

	// Stakes stay debited from betting; winnings land in gaming.
	assert.Equal(t, int64(900), bettingBalance(t, f, 1001))
	assert.Equal(t, int64(500), gamingBalance(t, f, 1001))
	assert.Equal(t, int64(1000), gamingBalance(t, f, 1002))
	assert.Equal(t, int64(0), gamingBalance(t, f, 1003))

	assert.Equal(t, domain.BetOrderStatusWon, f.orders.get(winner.BetID).Status)
	assert.Equal(t, domain.BetOrderStatusWon, f.orders.get(evenWinner.BetID).Status)
	assert.Equal(t, domain.BetOrderStatusLost, f.orders.get(loser.BetID).Status)
}

func TestSettleRound_RerunDoesNotPayTwice(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 1000)
	placeBet(t, f, 1001, "number", "4", 100)

	_, err := f.uc.SettleRound(context.Background(), 1, 4)
	require.NoError(t, err)
	require.Equal(t, int64(500), gamingBalance(t, f, 1001))

	// A second pass finds nothing pending and credits nothing.
	totals, err := f.uc.SettleRound(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(500), gamingBalance(t, f, 1001))
	assert.Equal(t, 1, totals.Bets, "totals still report the settled round")
}

func TestSettleRound_CreditFailureLeavesOrderPendingForRetry(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 1000)
	bet := placeBet(t, f, 1001, "number", "4", 100)

	f.wallet.setFailCredits(true)
	_, err := f.uc.SettleRound(context.Background(), 1, 4)
	require.Error(t, err, "unsettled bets must surface as an error")
	assert.Equal(t, domain.BetOrderStatusPending, f.orders.get(bet.BetID).Status)

	// The wallet recovers; the retry settles through the DB fallback even
	// though the live queue was already drained.
	f.wallet.setFailCredits(false)
	totals, err := f.uc.SettleRound(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(500), gamingBalance(t, f, 1001))
	assert.Equal(t, domain.BetOrderStatusWon, f.orders.get(bet.BetID).Status)
	assert.Equal(t, 1, totals.Winners)
}

func TestSettleRound_RecoversOrphanedOrdersFromDB(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 1000)
	bet := placeBet(t, f, 1001, "odd_even", "odd", 100)

	// Simulate a crash that wiped the live bet store but kept the durable
	// order rows.
	require.NoError(t, f.betRepo.ClearBets(context.Background(), 1))

	totals, err := f.uc.SettleRound(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(500), gamingBalance(t, f, 1001), "payout recomputed from the order row")
	assert.Equal(t, domain.BetOrderStatusWon, f.orders.get(bet.BetID).Status)
	assert.Equal(t, 1, totals.Bets)
}

func TestRefundRound_ReturnsStakesToOriginalWallet(t *testing.T) {
	f := newFixture()
	f.wallet.SetBalance(1001, service.WalletBetting, 1000)
	f.wallet.SetBalance(1002, service.WalletGaming, 1000)
	f.wallet.SetBalance(1002, service.WalletBetting, 0)

	b1 := placeBet(t, f, 1001, "number", "4", 100)
	bet2, _, err := f.uc.PlaceBet(context.Background(), win5x.PlaceBetReq{
		UserID: 1002, BetType: "number", Value: "5", Amount: 200, Wallet: "gaming",
	})
	require.NoError(t, err)

	require.NoError(t, f.uc.RefundRound(context.Background(), 1, "cancelled by operator"))

	assert.Equal(t, int64(1000), bettingBalance(t, f, 1001))
	assert.Equal(t, int64(1000), gamingBalance(t, f, 1002), "stake returns to the wallet it came from")
	assert.Equal(t, domain.BetOrderStatusRefunded, f.orders.get(b1.BetID).Status)
	assert.Equal(t, domain.BetOrderStatusRefunded, f.orders.get(bet2.BetID).Status)

	// Refunded rounds report empty totals.
	totals, err := f.orders.TotalsByRound(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, totals.Bets)
}

func TestGetCurrentRound_IncludesPlayerBets(t *testing.T) {
	f := newFixture()
	placeBet(t, f, 1001, "number", "4", 100)
	placeBet(t, f, 1002, "number", "5", 100)

	state, err := f.uc.GetCurrentRound(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state["round_number"])

	bets, ok := state["player_bets"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, bets, 1, "only the caller's own bets are returned")
	assert.Equal(t, int64(100), bets[0]["amount"])
}

func TestPlaceBet_EmitsBalanceAndReceiptPushes(t *testing.T) {
	f := newFixture()
	placeBet(t, f, 1001, "number", "4", 100)

	assert.Equal(t, 1, f.gateway.named(domain.EventUserBalanceUpdate))
	assert.Equal(t, 1, f.gateway.named(domain.EventBetAccepted))
}
