package economy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/mod/semver"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// Capability is an optional feature an economy backend offers.
type Capability string

const (
	CapabilityTransactionLogging  Capability = "transaction-logging"
	CapabilityCurrencyFormatting  Capability = "currency-formatting"
	CapabilityBulkOperations      Capability = "bulk-operations"
	CapabilityTransactionRollback Capability = "transaction-rollback"
	CapabilityCurrencyConversion  Capability = "currency-conversion"
	CapabilityAdvancedPermissions Capability = "advanced-permissions"
	CapabilityBankOperations      Capability = "bank-operations"
	CapabilityLoanSystem          Capability = "loan-system"
	CapabilityEconomyStatistics   Capability = "economy-statistics"
	CapabilityMultiCurrency       Capability = "multi-currency"
)

var knownCapabilities = []Capability{
	CapabilityTransactionLogging,
	CapabilityCurrencyFormatting,
	CapabilityBulkOperations,
	CapabilityTransactionRollback,
	CapabilityCurrencyConversion,
	CapabilityAdvancedPermissions,
	CapabilityBankOperations,
	CapabilityLoanSystem,
	CapabilityEconomyStatistics,
	CapabilityMultiCurrency,
}

func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "-")))
	if !slices.Contains(knownCapabilities, c) {
		return "", fmt.Errorf("unknown capability %q", s)
	}
	return c, nil
}

type Descriptor struct {
	Name         string
	Version      string
	Priority     int
	Capabilities []Capability
}

func (d Descriptor) Validate() error {
	if d.Name == "" {
		return errors.New("provider name must be set")
	}

	if !semver.IsValid(canonicalVersion(d.Version)) {
		return fmt.Errorf("provider %s: invalid version %q", d.Name, d.Version)
	}

	for _, c := range d.Capabilities {
		if !slices.Contains(knownCapabilities, c) {
			return fmt.Errorf("provider %s: unknown capability %q", d.Name, c)
		}
	}

	return nil
}

func (d Descriptor) Supports(c Capability) bool {
	return slices.Contains(d.Capabilities, c)
}

func canonicalVersion(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// Provider is a monetary backend. Amounts passed in are always positive.
type Provider interface {
	Descriptor() Descriptor
	// Available is a live probe; it may change at any time.
	Available(ctx context.Context) bool
	Has(ctx context.Context, participantID string, amount decimal.Decimal) (bool, error)
	Withdraw(ctx context.Context, participantID string, amount decimal.Decimal) error
	Deposit(ctx context.Context, participantID string, amount decimal.Decimal) error
	Balance(ctx context.Context, participantID string) (decimal.Decimal, error)
}

// CurrencyFormatter is implemented by providers that render amounts in
// their own currency.
type CurrencyFormatter interface {
	Format(amount decimal.Decimal) string
	CurrencyName() string
}

// StatisticsReporter is implemented by providers offering economy statistics:
// the total amount moved per transaction kind.
type StatisticsReporter interface {
	Statistics(ctx context.Context) (map[string]decimal.Decimal, error)
}
