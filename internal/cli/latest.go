package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/quake/internal/quake"
	"github.com/law-makers/quake/internal/utils/output"
)

var (
	latestSearch   string
	latestMinMag   float64
	latestSort     string
	latestOrder    string
	latestPage     int
	latestPageSize int
	latestOutput   string
)

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "List the latest earthquakes",
	Long: `Latest fetches the bulletin index and prints the earthquakes it lists.

Rows can be filtered by location and magnitude, sorted and paged. With
--output the filtered rows (all pages) are saved as .json or .csv; use
"-o -" to print JSON on stdout.`,
	Example: `  # Strongest quakes near Davao
  quake latest --search davao --sort magnitude

  # Everything of magnitude 4 or more as CSV
  quake latest --min-magnitude 4 -o quakes.csv`,
	Args: cobra.NoArgs,
	RunE: runLatest,
}

func init() {
	rootCmd.AddCommand(latestCmd)

	latestCmd.Flags().StringVarP(&latestSearch, "search", "s", "", "Only locations containing this text (case-insensitive)")
	latestCmd.Flags().Float64VarP(&latestMinMag, "min-magnitude", "m", 0, "Only magnitudes at or above this value")
	latestCmd.Flags().StringVar(&latestSort, "sort", quake.SortByDate, "Sort by date or magnitude")
	latestCmd.Flags().StringVar(&latestOrder, "order", quake.OrderDesc, "Sort order: asc or desc")
	latestCmd.Flags().IntVarP(&latestPage, "page", "p", 1, "Page to print")
	latestCmd.Flags().IntVar(&latestPageSize, "page-size", quake.DefaultPageSize, "Rows per page")
	latestCmd.Flags().StringVarP(&latestOutput, "output", "o", "", "Save the filtered rows to a .json or .csv file (- for JSON on stdout)")
}

func runLatest(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return errors.New("application not initialized")
	}

	filter := quake.Filter{
		Search:       latestSearch,
		MinMagnitude: latestMinMag,
		SortBy:       latestSort,
		Order:        latestOrder,
		Page:         latestPage,
		PageSize:     latestPageSize,
	}
	if err := filter.Validate(); err != nil {
		return err
	}

	list, err := a.Scraper.FetchLatest(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch latest: %w", err)
	}
	log.Debug().Int("count", list.Count).Msg("Bulletin index fetched")

	if latestOutput != "" {
		all := filter
		all.Page = 1
		all.PageSize = max(list.Count, 1)
		return saveLatest(cmd, all.Apply(list.Data), latestOutput)
	}

	now := time.Now()
	printQuakes(cmd.OutOrStdout(), filter.Apply(list.Data), now)
	printStats(cmd.OutOrStdout(), quake.Summarize(list.Data, now))
	return nil
}

func saveLatest(cmd *cobra.Command, page quake.Page, path string) error {
	if path == "-" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(page.Items)
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = output.SaveJSON(page.Items, path)
	case ".csv":
		err = output.SaveCSV(page.Items, path)
	default:
		return fmt.Errorf("unsupported output format %q (use .json or .csv)", filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d earthquakes to %s\n", page.Total, path)
	return nil
}
