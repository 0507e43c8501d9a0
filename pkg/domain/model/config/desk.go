package config

import (
	"slices"

	"github.com/secmon-lab/collectdesk/pkg/domain/model"
)

// Currency is an ISO currency offered by the case creation wizard
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}

// DefaultCurrencies are offered when no currency is configured
func DefaultCurrencies() []Currency {
	return []Currency{
		{Code: "EUR", Name: "Euro", Symbol: "€"},
		{Code: "USD", Name: "US Dollar", Symbol: "$"},
		{Code: "GBP", Name: "British Pound", Symbol: "£"},
		{Code: "CHF", Name: "Swiss Franc", Symbol: "CHF"},
	}
}

// DeskConfig holds the policy values loaded from the application config file
type DeskConfig struct {
	Currencies []Currency
	Intake     model.IntakePolicy
	PageSize   int
}

// Default returns the configuration used when no config file is given
func Default() *DeskConfig {
	return &DeskConfig{
		Currencies: DefaultCurrencies(),
		Intake:     model.DefaultIntakePolicy(),
		PageSize:   model.DefaultPageSize,
	}
}

// CurrencyCodes returns the configured codes in display order
func (c *DeskConfig) CurrencyCodes() []string {
	codes := make([]string, 0, len(c.Currencies))
	for _, cur := range c.Currencies {
		codes = append(codes, cur.Code)
	}
	return codes
}

// SupportsCurrency reports whether code is one of the configured currencies
func (c *DeskConfig) SupportsCurrency(code string) bool {
	return slices.Contains(c.CurrencyCodes(), code)
}
