package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/cli/config"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var appCfg config.AppConfig

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the application config file",
		Flags:   appCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if appCfg.Path() == "" {
				return goerr.New("--config is required")
			}

			loaded, err := appCfg.Load()
			if err != nil {
				color.New(color.FgRed, color.Bold).Fprintf(errWriterOf(c), "✘ %s\n", appCfg.Path())
				return goerr.Wrap(err, "configuration validation failed")
			}

			logging.Default().Info("Configuration validation passed", "path", appCfg.Path())
			printSummary(writerOf(c), appCfg.Path(), loaded)
			return nil
		},
	}
}

func writerOf(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriterOf(c *cli.Command) io.Writer {
	if w := c.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func printSummary(w io.Writer, path string, cfg *config.AppConfig) {
	desk := cfg.ToDeskConfig()
	ok := color.New(color.FgGreen, color.Bold)
	key := color.New(color.FgCyan)

	ok.Fprintf(w, "✔ %s\n", path)
	summaryLine(w, key, "currencies", strings.Join(desk.CurrencyCodes(), ", "))
	summaryLine(w, key, "default currency", desk.Intake.DefaultCurrency)
	summaryLine(w, key, "max file size", fmt.Sprintf("%dMB", desk.Intake.MaxFileSize/(1024*1024)))
	summaryLine(w, key, "allowed types", strings.Join(desk.Intake.AllowedMIMETypes, ", "))
	summaryLine(w, key, "page size", fmt.Sprintf("%d", desk.PageSize))
	for table, rows := range cfg.ReferenceSeeds() {
		summaryLine(w, key, "reference "+table.String(), fmt.Sprintf("%d entries", len(rows)))
	}
}

func summaryLine(w io.Writer, key *color.Color, name, value string) {
	_, _ = fmt.Fprintf(w, "  %s: %s\n", key.Sprint(name), value)
}
