package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/barsim/config"
	"github.com/rustyeddy/barsim/feed"
	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/session"
	"github.com/rustyeddy/barsim/strategies"
)

var runConfigPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one backtest session from a configuration file",
	Long: `Run wires a bar feed, a strategy and a journal from the given
configuration file, replays the configured time range once, and prints a
summary of the finished session.

Example:
  barsim run -c backtest.yaml`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "barsim.yaml", "path to YAML/JSON configuration")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return err
	}

	hours, err := cfg.Hours.Hours()
	if err != nil {
		return err
	}

	barFeed, closeFeed, err := newFeed(cfg, hours)
	if err != nil {
		return err
	}
	defer closeFeed()

	j, err := newJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	strat, err := strategies.ByName(cfg.Strategy.Name, cfg.Strategy.Parameters)
	if err != nil {
		return err
	}

	ctrl, err := session.New(session.Config{
		Instrument:     cfg.Session.Instrument,
		Timeframe:      cfg.Session.Timeframe,
		Start:          cfg.Session.Start,
		End:            cfg.Session.End,
		InitialCapital: cfg.Account.InitialCapital,
		Commission:     cfg.Commission,
		Slippage:       cfg.Slippage,
	}, barFeed, strat, j)
	if err != nil {
		return err
	}

	res, err := ctrl.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Session:      %s\n", res.SessionID)
	fmt.Printf("Status:       %s\n", res.Status)
	fmt.Printf("Instrument:   %s %s\n", cfg.Session.Instrument, cfg.Session.Timeframe)
	fmt.Printf("Range:        %s -> %s\n",
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"))
	fmt.Printf("Trades:       %d (%d wins, %d losses)\n", res.Trades, res.Wins, res.Losses)
	fmt.Printf("Realized P/L: %.2f\n", res.RealizedPL)
	fmt.Printf("Final equity: %.2f\n", res.FinalEquity)
	return nil
}

func newFeed(cfg *config.Config, hours *market.Hours) (market.Feed, func() error, error) {
	switch cfg.Feed.Type {
	case "sqlite":
		store, err := feed.NewSQLiteStore(cfg.Feed.DBPath, hours)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "csv":
		f, err := feed.NewCSV(cfg.Feed.CSVFile, cfg.Session.Instrument, hours)
		if err != nil {
			return nil, nil, err
		}
		return f, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unsupported feed type %q", cfg.Feed.Type)
}

func newJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		return journal.NewCSV(
			cfg.Journal.SessionsFile, cfg.Journal.OrdersFile,
			cfg.Journal.TradesFile, cfg.Journal.PositionsFile,
		)
	}
	return nil, fmt.Errorf("unsupported journal type %q", cfg.Journal.Type)
}
