package economy

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rtpcraft/randomtp/internal/clients/walletclient"
)

const walletProviderVersion = "1.2.0"

// WalletProvider adapts the remote wallet service.
type WalletProvider struct {
	client walletclient.WalletInterface
	desc   Descriptor
}

func NewWalletProvider(client walletclient.WalletInterface, priority int) *WalletProvider {
	return &WalletProvider{
		client: client,
		desc: Descriptor{
			Name:     "wallet",
			Version:  walletProviderVersion,
			Priority: priority,
			Capabilities: []Capability{
				CapabilityTransactionLogging,
				CapabilityBankOperations,
			},
		},
	}
}

func (w *WalletProvider) Descriptor() Descriptor {
	return w.desc
}

func (w *WalletProvider) Available(ctx context.Context) bool {
	return w.client.Health(ctx) == nil
}

func (w *WalletProvider) Has(ctx context.Context, participantID string, amount decimal.Decimal) (bool, error) {
	balance, err := w.client.GetBalance(ctx, participantID)
	if err != nil {
		return false, err
	}
	return balance.GreaterThanOrEqual(amount), nil
}

func (w *WalletProvider) Withdraw(ctx context.Context, participantID string, amount decimal.Decimal) error {
	err := w.client.Withdraw(ctx, participantID, amount)
	if errors.Is(err, walletclient.ErrInsufficientFunds) {
		return ErrInsufficientBalance
	}
	return err
}

func (w *WalletProvider) Deposit(ctx context.Context, participantID string, amount decimal.Decimal) error {
	return w.client.Deposit(ctx, participantID, amount)
}

func (w *WalletProvider) Balance(ctx context.Context, participantID string) (decimal.Decimal, error) {
	return w.client.GetBalance(ctx, participantID)
}
