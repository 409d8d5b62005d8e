package economy

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts with locale aware digit grouping.
type Formatter struct {
	printer *message.Printer
	symbol  string
	name    string
}

func NewFormatter(locale, symbol, currencyName string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}

	return &Formatter{
		printer: message.NewPrinter(tag),
		symbol:  symbol,
		name:    currencyName,
	}, nil
}

func (f *Formatter) Format(amount decimal.Decimal) string {
	v, _ := amount.Round(2).Float64()
	return f.symbol + f.printer.Sprintf("%.2f", v)
}

func (f *Formatter) CurrencyName() string {
	return f.name
}
