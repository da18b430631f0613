package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/jbdekhoooff08512/Win5x/pkg/service"
)

const defaultBalance = 1000000 // seeded on first touch, handy for testing

// LedgerEntry records one balance movement for auditability.
type LedgerEntry struct {
	UserID int64
	Wallet service.Wallet
	Amount int64 // negative for debits
	Reason string
	Time   time.Time
}

// MockService implements service.WalletService with in-memory balances. It
// enforces the dual-wallet split and insufficient-funds checks so the bet
// flow behaves like it would against the real wallet backend.
type MockService struct {
	balances map[int64]map[service.Wallet]int64
	ledger   []LedgerEntry
	mu       sync.RWMutex
}

// NewMockService creates a new mock wallet service
func NewMockService() *MockService {
	return &MockService{
		balances: make(map[int64]map[service.Wallet]int64),
	}
}

// SetBalance sets a wallet balance for a user (for testing)
func (s *MockService) SetBalance(userID int64, wallet service.Wallet, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userBalances(userID)[wallet] = balance
}

// userBalances returns the per-wallet map, seeding defaults on first touch.
// Callers hold the lock.
func (s *MockService) userBalances(userID int64) map[service.Wallet]int64 {
	b, exists := s.balances[userID]
	if !exists {
		b = map[service.Wallet]int64{
			service.WalletBetting: defaultBalance,
			service.WalletGaming:  0,
		}
		s.balances[userID] = b
	}
	return b
}

// GetBalances returns both wallet balances for a user.
func (s *MockService) GetBalances(ctx context.Context, userID int64) (map[service.Wallet]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.userBalances(userID)
	return map[service.Wallet]int64{
		service.WalletBetting: b[service.WalletBetting],
		service.WalletGaming:  b[service.WalletGaming],
	}, nil
}

// Debit removes amount from the given wallet, failing the whole operation
// when funds are short. Returns the new balance of that wallet.
func (s *MockService) Debit(ctx context.Context, userID int64, wallet service.Wallet, amount int64, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.userBalances(userID)
	if b[wallet] < amount {
		return b[wallet], service.ErrInsufficientBalance
	}
	b[wallet] -= amount
	s.ledger = append(s.ledger, LedgerEntry{
		UserID: userID,
		Wallet: wallet,
		Amount: -amount,
		Reason: reason,
		Time:   time.Now(),
	})
	return b[wallet], nil
}

// Credit adds amount to the given wallet. Returns the new balance.
func (s *MockService) Credit(ctx context.Context, userID int64, wallet service.Wallet, amount int64, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.userBalances(userID)
	b[wallet] += amount
	s.ledger = append(s.ledger, LedgerEntry{
		UserID: userID,
		Wallet: wallet,
		Amount: amount,
		Reason: reason,
		Time:   time.Now(),
	})
	return b[wallet], nil
}

// Ledger returns a copy of every recorded balance movement (for testing).
func (s *MockService) Ledger() []LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LedgerEntry, len(s.ledger))
	copy(out, s.ledger)
	return out
}
