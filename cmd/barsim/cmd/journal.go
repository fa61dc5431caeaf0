package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/barsim/journal"
)

var journalDBPath string

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect sessions and trades in a journal DB",
}

var journalSessionCmd = &cobra.Command{
	Use:   "session SESSION_ID",
	Short: "Show one session with its orders and trades",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalSession,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalSessionCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./backtest.sqlite", "path to SQLite journal DB")
}

func runJournalSession(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	sid := args[0]
	sess, err := j.GetSession(sid)
	if err != nil {
		return err
	}

	fmt.Printf("Session %s\n", sess.ID)
	fmt.Printf("  strategy:   %s on %s %s\n", sess.Strategy, sess.Instrument, sess.Timeframe)
	fmt.Printf("  range:      %s -> %s\n",
		sess.Start.Format("2006-01-02"), sess.End.Format("2006-01-02"))
	fmt.Printf("  status:     %s\n", sess.Status)
	fmt.Printf("  capital:    %.2f", sess.InitialCapital)
	if sess.Status == journal.StatusCompleted {
		fmt.Printf(" -> %.2f", sess.FinalEquity)
	}
	fmt.Println()

	orders, err := j.ListOrdersBySession(sid)
	if err != nil {
		return err
	}
	trades, err := j.ListTradesBySession(sid)
	if err != nil {
		return err
	}

	commByOrder := make(map[string]float64, len(trades))
	for _, t := range trades {
		commByOrder[t.OrderID] = t.Commission
	}

	fmt.Printf("\n  %-20s %-4s %8s %12s %10s  %s\n", "time", "side", "qty", "price", "commission", "reason")
	for _, o := range orders {
		fmt.Printf("  %-20s %-4s %8d %12.4f %10.4f  %s\n",
			o.Time.UTC().Format(time.DateTime), o.Side, o.Quantity,
			o.Price, commByOrder[o.ID], o.Reason)
	}
	fmt.Printf("\n  %d orders, %d trades\n", len(orders), len(trades))
	return nil
}
