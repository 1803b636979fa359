package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-script/internal/backtest"
	"github.com/rxtech-lab/argo-script/internal/datasource"
	"github.com/rxtech-lab/argo-script/internal/logger"
	"github.com/rxtech-lab/argo-script/internal/version"
	"github.com/rxtech-lab/argo-script/pkg/schema"
	"github.com/urfave/cli/v3"
)

// runAction loads the config, script and data, then executes one backtest
// and prints the metrics.
func runAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	scriptPath := cmd.String("script")
	dataPath := cmd.String("data")
	symbol := cmd.String("symbol")
	outputDir := cmd.String("output")

	cfg, err := backtest.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if symbol != "" {
		cfg.Symbol = symbol
	}

	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	source, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	appLogger, err := buildLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = appLogger.Sync() }()

	data, err := datasource.New(appLogger)
	if err != nil {
		return err
	}
	defer data.Close()

	bars, err := data.LoadBars(dataPath, cfg.Symbol)
	if err != nil {
		return fmt.Errorf("failed to load bars: %w", err)
	}

	driver, err := backtest.NewDriver(cfg, appLogger)
	if err != nil {
		return err
	}

	driver.ShowProgress = !cmd.Bool("quiet")

	result, err := driver.Run(string(source), bars)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printSummary(result)

	if result.Script.SandboxViolation != nil {
		return fmt.Errorf("script halted: %w", result.Script.SandboxViolation)
	}

	return nil
}

func buildLogger(logFile string) (*logger.Logger, error) {
	if logFile == "" {
		return logger.NewLogger()
	}

	return logger.NewFileLogger(logger.FileConfig{Path: logFile})
}

// printSummary renders the run metrics as a table.
func printSummary(result *backtest.RunResult) {
	metrics := result.Metrics

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Backtest %s (%s)", result.ID, result.Symbol)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Initial Capital", fmt.Sprintf("%.2f", metrics.InitialCapital)},
		{"Final Equity", fmt.Sprintf("%.2f", metrics.FinalEquity)},
		{"Total Return", fmt.Sprintf("%.2f%%", metrics.TotalReturn*100)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", metrics.MaxDrawdown*100)},
		{"Sharpe Ratio", fmt.Sprintf("%.4f", metrics.SharpeRatio)},
		{"Sortino Ratio", fmt.Sprintf("%.4f", metrics.SortinoRatio)},
		{"Win Rate", fmt.Sprintf("%.2f%%", metrics.WinRate*100)},
		{"Profit Factor", fmt.Sprintf("%.4f", metrics.ProfitFactor)},
		{"Total Trades", metrics.TotalTrades},
		{"Total Fees", fmt.Sprintf("%.2f", metrics.TotalFees)},
	})
	t.Render()

	if len(result.Script.Errors) > 0 {
		fmt.Printf("script faults recorded: %d\n", len(result.Script.Errors))
	}

	if len(result.OrderErrors) > 0 {
		fmt.Printf("order errors recorded: %d\n", len(result.OrderErrors))
	}
}

// schemaAction prints the JSON schema of the config file format.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	out, err := schema.ToJSONSchema(&backtest.Config{})
	if err != nil {
		return err
	}

	fmt.Println(out)

	return nil
}

func main() {
	// A .env next to the binary can supply defaults; missing files are
	// fine.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:    "argo-script",
		Usage:   "Run strategy scripts against historical market data",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Execute a backtest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML config file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "script",
						Aliases:  []string{"s"},
						Usage:    "Path to the strategy script",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the bar data (.csv or .parquet)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "symbol",
						Usage: "Override the config symbol",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory for parquet exports and the report",
					},
					&cli.StringFlag{
						Name:  "log-file",
						Usage: "Write logs to a rolling file instead of stdout only",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Disable the progress bar",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the config JSON schema",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
