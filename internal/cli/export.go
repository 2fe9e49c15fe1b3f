package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/law-makers/quake/internal/downloader"
	"github.com/law-makers/quake/internal/quake"
	"github.com/law-makers/quake/internal/ui"
	"github.com/law-makers/quake/internal/utils/output"
	"github.com/law-makers/quake/pkg/models"
)

var (
	exportOutput      string
	exportConcurrency int
	exportMinMag      float64
	exportSaveMaps    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the latest earthquakes with their bulletins",
	Long: `Export fetches the bulletin index, then every linked bulletin
concurrently, and writes one JSON document pairing each row with its
details. A bulletin that fails is recorded with its error; the export
itself still succeeds.`,
	Example: `  quake export -o quakes.json

  # Only magnitude 4+, with map images
  quake export -o strong.json -m 4 --save-maps ./maps`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "quakes.json", "JSON file to write")
	exportCmd.Flags().IntVarP(&exportConcurrency, "concurrency", "c", 0, "Parallel bulletin fetches (0 = auto)")
	exportCmd.Flags().Float64VarP(&exportMinMag, "min-magnitude", "m", 0, "Only rows at or above this magnitude")
	exportCmd.Flags().StringVar(&exportSaveMaps, "save-maps", "", "Download every map image into this directory")
}

func runExport(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return errors.New("application not initialized")
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	list, err := a.Scraper.FetchLatest(ctx)
	if err != nil {
		return fmt.Errorf("fetch latest: %w", err)
	}

	filter := quake.Filter{MinMagnitude: exportMinMag, PageSize: max(list.Count, 1)}
	rows := filter.Apply(list.Data).Items

	var urls []string
	for _, q := range rows {
		if q.DetailsURL != nil {
			urls = append(urls, *q.DetailsURL)
		}
	}

	scraper := a.Batch(exportConcurrency)
	log.Debug().Int("bulletins", len(urls)).Int("concurrency", scraper.Concurrency()).Msg("Starting export")

	bar := newProgressBar(len(urls), "Fetching bulletins")
	results := scraper.Collect(ctx, urls, func(models.DetailResult) {
		_ = bar.Add(1)
	})
	_ = bar.Finish()

	export := buildExport(rows, results, a.Scraper.IndexURL(), time.Now().UTC())
	if err := output.SaveJSON(export, exportOutput); err != nil {
		return err
	}

	failed := 0
	for _, r := range export.Records {
		if r.Error != "" {
			failed++
		}
	}
	fmt.Fprintf(out, "%s %d earthquakes to %s", ui.Success("Exported"), export.Count, exportOutput)
	if failed > 0 {
		fmt.Fprintf(out, " (%s)", ui.Error(fmt.Sprintf("%d bulletins failed", failed)))
	}
	fmt.Fprintln(out)

	if exportSaveMaps == "" {
		return nil
	}

	var maps []string
	for _, r := range results {
		if r.Detail != nil && r.Detail.MapImage != nil {
			maps = append(maps, *r.Detail.MapImage)
		}
	}

	pool := downloader.NewWorkerPool(downloader.NewDownloader(a.HTTPClient(), a.Fetcher.UserAgent()), scraper.Concurrency())
	saved := 0
	for _, res := range pool.DownloadBatch(ctx, maps, downloader.DownloadOptions{
		OutputDir:  exportSaveMaps,
		ImagesOnly: true,
		Headers:    a.Config.Headers,
	}) {
		if res.Error != nil {
			log.Warn().Err(res.Error).Str("url", res.URL).Msg("Map download failed")
			continue
		}
		saved++
	}
	fmt.Fprintf(out, "%s %d/%d maps to %s\n", ui.Success("Saved"), saved, len(maps), exportSaveMaps)
	return nil
}

// buildExport pairs every row with the result fetched for its bulletin
func buildExport(rows []models.EarthquakeSummary, results []models.DetailResult, source string, fetchedAt time.Time) models.Export {
	byURL := make(map[string]models.DetailResult, len(results))
	for _, r := range results {
		byURL[r.URL] = r
	}

	records := make([]models.ExportRecord, 0, len(rows))
	for _, q := range rows {
		rec := models.ExportRecord{EarthquakeSummary: q}
		if q.DetailsURL != nil {
			if r, ok := byURL[*q.DetailsURL]; ok {
				rec.Details = r.Detail
				if r.Error != nil {
					rec.Error = r.Error.Error()
				}
			}
		}
		records = append(records, rec)
	}

	return models.Export{
		FetchedAt: fetchedAt,
		Source:    source,
		Count:     len(records),
		Records:   records,
	}
}

// newProgressBar draws on stderr when it is a terminal and stays silent otherwise
func newProgressBar(total int, description string) *progressbar.ProgressBar {
	var w io.Writer = io.Discard
	if isatty.IsTerminal(os.Stderr.Fd()) {
		w = os.Stderr
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
