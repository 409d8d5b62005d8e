package walletclient

import (
	"context"

	"github.com/shopspring/decimal"
)

type WalletInterface interface {
	Health(ctx context.Context) error
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) error
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal) error
}
