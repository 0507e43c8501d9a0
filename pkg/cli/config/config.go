package config

import (
	"log/slog"
	"os"
	"regexp"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	domainConfig "github.com/secmon-lab/collectdesk/pkg/domain/model/config"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig     = goerr.New("invalid configuration")
	ErrDuplicateCurrency = goerr.New("duplicate currency code")
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// AppConfig represents the application configuration file
type AppConfig struct {
	path string

	Currencies []Currency    `toml:"currency"`
	Intake     IntakeSection `toml:"intake"`
	Cases      CasesSection  `toml:"cases"`

	// Reference holds seed rows keyed by lookup table name
	Reference map[string][]ReferenceEntry `toml:"reference"`
}

// Currency is a currency offered by the case creation wizard
type Currency struct {
	Code   string `toml:"code"`
	Name   string `toml:"name"`
	Symbol string `toml:"symbol"`
}

// Validate checks if the Currency is valid
func (c *Currency) Validate() error {
	if !currencyCodePattern.MatchString(c.Code) {
		return goerr.Wrap(ErrInvalidConfig, "currency code must be three upper case letters", goerr.V("code", c.Code))
	}
	if c.Name == "" {
		return goerr.Wrap(ErrInvalidConfig, "currency name is required", goerr.V("code", c.Code))
	}
	return nil
}

// IntakeSection configures the case creation wizard
type IntakeSection struct {
	MaxFileSize      int64    `toml:"max_file_size"`
	AllowedMIMETypes []string `toml:"allowed_mime_types"`
	DefaultCurrency  string   `toml:"default_currency"`
}

// ReferenceEntry is a seed row of a lookup table
type ReferenceEntry struct {
	Code        string `toml:"code"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	SortOrder   int    `toml:"sort_order"`
}

// CasesSection configures the case list
type CasesSection struct {
	PageSize int `toml:"page_size"`
}

func (a *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML application config (currencies, intake policy, page size)",
			Sources:     cli.EnvVars("COLLECTDESK_CONFIG"),
			Destination: &a.path,
		},
	}
}

func (a AppConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", a.path),
		slog.Int("currencies", len(a.Currencies)),
	)
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	codes := make(map[string]bool)
	for _, cur := range a.Currencies {
		if err := cur.Validate(); err != nil {
			return goerr.Wrap(err, "invalid currency")
		}
		if codes[cur.Code] {
			return goerr.Wrap(ErrDuplicateCurrency, "currency is listed twice", goerr.V("code", cur.Code))
		}
		codes[cur.Code] = true
	}

	if a.Intake.MaxFileSize < 0 {
		return goerr.Wrap(ErrInvalidConfig, "intake.max_file_size must not be negative",
			goerr.V("max_file_size", a.Intake.MaxFileSize))
	}
	for _, mt := range a.Intake.AllowedMIMETypes {
		if mt == "" {
			return goerr.Wrap(ErrInvalidConfig, "intake.allowed_mime_types contains an empty entry")
		}
	}
	if dc := a.Intake.DefaultCurrency; dc != "" && len(a.Currencies) > 0 && !codes[dc] {
		return goerr.Wrap(ErrInvalidConfig, "intake.default_currency is not a configured currency",
			goerr.V("default_currency", dc))
	}

	for table, entries := range a.Reference {
		if !types.ReferenceTable(table).IsValid() {
			return goerr.Wrap(ErrInvalidConfig, "unknown reference table", goerr.V("table", table))
		}
		seen := make(map[string]bool)
		for _, e := range entries {
			if e.Code == "" || e.Name == "" {
				return goerr.Wrap(ErrInvalidConfig, "reference entry needs code and name", goerr.V("table", table))
			}
			if seen[e.Code] {
				return goerr.Wrap(ErrInvalidConfig, "duplicate reference code",
					goerr.V("table", table), goerr.V("code", e.Code))
			}
			seen[e.Code] = true
		}
	}

	if a.Cases.PageSize < 0 {
		return goerr.Wrap(ErrInvalidConfig, "cases.page_size must not be negative",
			goerr.V("page_size", a.Cases.PageSize))
	}
	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML config", goerr.V("path", path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V("path", path))
	}

	config.path = path
	return &config, nil
}

// Path returns the file given by --config
func (a *AppConfig) Path() string {
	return a.path
}

// Load reads the file given by --config. Without one an empty config is
// returned.
func (a *AppConfig) Load() (*AppConfig, error) {
	if a.path == "" {
		return &AppConfig{}, nil
	}
	return LoadAppConfiguration(a.path)
}

// Configure loads the file given by --config. Without one the built-in
// defaults are used.
func (a *AppConfig) Configure() (*domainConfig.DeskConfig, error) {
	loaded, err := a.Load()
	if err != nil {
		return nil, err
	}
	return loaded.ToDeskConfig(), nil
}

// ReferenceSeeds converts the reference section into repository rows. The
// code doubles as the entry ID.
func (a *AppConfig) ReferenceSeeds() map[types.ReferenceTable][]*model.ReferenceEntry {
	seeds := make(map[types.ReferenceTable][]*model.ReferenceEntry, len(a.Reference))
	for table, entries := range a.Reference {
		rows := make([]*model.ReferenceEntry, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, &model.ReferenceEntry{
				ID:          e.Code,
				Code:        e.Code,
				Name:        e.Name,
				Description: e.Description,
				SortOrder:   e.SortOrder,
			})
		}
		seeds[types.ReferenceTable(table)] = rows
	}
	return seeds
}

// ToDeskConfig converts AppConfig to the domain DeskConfig. Unset values
// keep their defaults.
func (a *AppConfig) ToDeskConfig() *domainConfig.DeskConfig {
	cfg := domainConfig.Default()

	if len(a.Currencies) > 0 {
		cfg.Currencies = make([]domainConfig.Currency, len(a.Currencies))
		for i, cur := range a.Currencies {
			cfg.Currencies[i] = domainConfig.Currency{
				Code:   cur.Code,
				Name:   cur.Name,
				Symbol: cur.Symbol,
			}
		}
	}

	if a.Intake.MaxFileSize > 0 {
		cfg.Intake.MaxFileSize = a.Intake.MaxFileSize
	}
	if len(a.Intake.AllowedMIMETypes) > 0 {
		cfg.Intake.AllowedMIMETypes = slices.Clone(a.Intake.AllowedMIMETypes)
	}
	switch {
	case a.Intake.DefaultCurrency != "":
		cfg.Intake.DefaultCurrency = a.Intake.DefaultCurrency
	case !cfg.SupportsCurrency(model.DefaultCurrency) && len(cfg.Currencies) > 0:
		cfg.Intake.DefaultCurrency = cfg.Currencies[0].Code
	}

	if a.Cases.PageSize > 0 {
		cfg.PageSize = a.Cases.PageSize
	}
	return cfg
}
