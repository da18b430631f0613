package service

import (
	"context"
	"errors"
)

// Wallet identifies which of a user's wallets a movement applies to.
type Wallet string

const (
	WalletBetting Wallet = "betting"
	WalletGaming  Wallet = "gaming"
)

// ErrInsufficientBalance is returned by Debit when the wallet cannot cover the amount.
var ErrInsufficientBalance = errors.New("insufficient balance")

// WalletService defines the wallet ledger boundary. Amounts are int64 minor
// units (paise). Each call is atomic and idempotent on the provider side;
// the engine never applies the same movement twice.
type WalletService interface {
	GetBalances(ctx context.Context, userID int64) (map[Wallet]int64, error)

	// Debit removes amount from the given wallet and returns the new balance.
	// Returns ErrInsufficientBalance without side effects when the wallet
	// cannot cover the amount.
	Debit(ctx context.Context, userID int64, wallet Wallet, amount int64, reason string) (int64, error)

	// Credit adds amount to the given wallet and returns the new balance.
	Credit(ctx context.Context, userID int64, wallet Wallet, amount int64, reason string) (int64, error)
}
