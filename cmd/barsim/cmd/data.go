package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"

	"github.com/rustyeddy/barsim/feed"
	"github.com/rustyeddy/barsim/market"
)

var (
	dataDBPath     string
	dataInstrument string
	dataTimeframe  string
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Prepare the historical bar store",
}

var dataImportCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Import CSV bar files into the SQLite bar store",
	Long: `Import reads bar files with the header time,open,high,low,close,volume
and loads them into the bars table. Plain .csv files, .zip archives of CSV
files and .xz compressed CSV files are accepted. Re-importing the same
rows is a no-op.

Example:
  barsim data import --db bars.sqlite -i SPY -f M5 2025-01.csv.xz`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDataImport,
}

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataImportCmd)

	dataImportCmd.Flags().StringVar(&dataDBPath, "db", "./bars.sqlite", "path to SQLite bar store")
	dataImportCmd.Flags().StringVarP(&dataInstrument, "instrument", "i", "", "instrument symbol (required)")
	dataImportCmd.Flags().StringVarP(&dataTimeframe, "timeframe", "f", "M5", "bar timeframe (M1, M5, H1, ...)")
	dataImportCmd.MarkFlagRequired("instrument")
}

func runDataImport(cmd *cobra.Command, args []string) error {
	if _, err := market.TFSeconds(dataTimeframe); err != nil {
		return err
	}

	// The store only writes here; trading hours are irrelevant for
	// ingestion, so a permissive calendar keeps the constructor happy.
	hours, err := market.NewHours("UTC", "00:00", "23:59", 0)
	if err != nil {
		return err
	}

	store, err := feed.NewSQLiteStore(dataDBPath, hours)
	if err != nil {
		return err
	}
	defer store.Close()

	total := 0
	for _, path := range args {
		n, err := importFile(store, path)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		fmt.Printf("%-40s %6d bars\n", filepath.Base(path), n)
		total += n
	}

	fmt.Printf("\nImported %d bars for %s %s into %s\n", total, dataInstrument, dataTimeframe, dataDBPath)
	return nil
}

func importFile(store *feed.SQLiteStore, path string) (int, error) {
	switch {
	case strings.HasSuffix(path, ".zip"):
		return importZip(store, path)
	case strings.HasSuffix(path, ".xz"):
		return importXZ(store, path)
	default:
		return importCSV(store, path)
	}
}

func importCSV(store *feed.SQLiteStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	bars, err := feed.ReadBars(f, dataInstrument)
	if err != nil {
		return 0, err
	}
	return store.InsertBars(dataInstrument, dataTimeframe, bars)
}

func importXZ(store *feed.SQLiteStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("open xz stream: %w", err)
	}

	bars, err := feed.ReadBars(r, dataInstrument)
	if err != nil {
		return 0, err
	}
	return store.InsertBars(dataInstrument, dataTimeframe, bars)
}

// importZip extracts the archive to a temp dir and imports every CSV it
// contains.
func importZip(store *feed.SQLiteStore, path string) (int, error) {
	tmp, err := os.MkdirTemp("", "barsim-import-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(tmp)

	if err := unzip.Extract(path, tmp); err != nil {
		return 0, fmt.Errorf("extract zip: %w", err)
	}

	total := 0
	err = filepath.WalkDir(tmp, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".csv") {
			return nil
		}
		n, err := importCSV(store, p)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		total += n
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, nil
}
