package cmd

import (
	"fmt"
	"gdsync/internal/model"
	"gdsync/internal/repository"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	historyN      int
	historyFailed bool
	historyRun    string
)

type historyReader interface {
	GetRecent(limit int) ([]model.History, error)
	GetFailed() ([]model.History, error)
	GetRun(runID string) ([]model.History, error)
}

// loadHistory picks one run, the failed transfers or the most recent ones,
// in that order of precedence.
func loadHistory(repo historyReader, runID string, failed bool, limit int) ([]model.History, error) {
	switch {
	case runID != "":
		return repo.GetRun(runID)
	case failed:
		return repo.GetFailed()
	default:
		return repo.GetRecent(limit)
	}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent transfers",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := repository.NewHistoryRepository()

		histories, err := loadHistory(repo, historyRun, historyFailed, historyN)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if len(histories) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		renderHistory(os.Stdout, histories)

		stats, err := repo.GetStats()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		fmt.Printf("%d transfers, %d failed, %s downloaded\n",
			stats.Total, stats.Failed, humanize.Bytes(uint64(stats.Bytes)))
		return nil
	},
}

func renderHistory(w io.Writer, histories []model.History) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "When", "Batch", "Size", "Path", "Error"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, h := range histories {
		status := "✓"
		if h.Status == model.StatusFailed {
			status = "✗"
		}

		table.Append([]string{
			status,
			humanize.Time(h.SyncedAt),
			string(h.Batch),
			humanize.Bytes(uint64(h.Bytes)),
			h.LocalPath,
			h.ErrMsg,
		})
	}

	table.Render()
}

func init() {
	historyCmd.Flags().IntVarP(&historyN, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "Show only failed transfers")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show every transfer of one run")
	rootCmd.AddCommand(historyCmd)
}

