package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/law-makers/quake/internal/downloader"
	"github.com/law-makers/quake/internal/ui"
	"github.com/law-makers/quake/internal/utils/output"
)

var (
	detailsOutput  string
	detailsSaveMap string
	detailsDump    bool
)

var detailsCmd = &cobra.Command{
	Use:   "details <bulletin-url>",
	Short: "Show one earthquake bulletin",
	Long: `Details fetches a single bulletin page and prints its fields.

The page can be saved as structured .json or as a readable .md document,
and its intensity map downloaded next to it.`,
	Example: `  quake details https://earthquake.phivolcs.dost.gov.ph/2025_Earthquake_Information/November/2025_1127_0204_B2.html

  # Save as Markdown with the map image
  quake details <url> -o bulletin.md --save-map ./maps`,
	Args: cobra.ExactArgs(1),
	RunE: runDetails,
}

func init() {
	rootCmd.AddCommand(detailsCmd)

	detailsCmd.Flags().StringVarP(&detailsOutput, "output", "o", "", "Save the bulletin to a .json or .md file")
	detailsCmd.Flags().StringVar(&detailsSaveMap, "save-map", "", "Download the map image into this directory")
	detailsCmd.Flags().BoolVar(&detailsDump, "dump", false, "Print the indented page tree (debugging)")
}

func runDetails(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return errors.New("application not initialized")
	}
	out := cmd.OutOrStdout()

	d, doc, err := a.Scraper.FetchDetailsWithDoc(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("fetch details: %w", err)
	}

	if detailsDump && len(doc.Nodes) > 0 {
		fmt.Fprint(out, output.PrettyPrint(doc.Nodes[0]))
	}

	switch strings.ToLower(filepath.Ext(detailsOutput)) {
	case "":
		printDetail(out, d)
	case ".json":
		if err := output.SaveJSON(d, detailsOutput); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", ui.Success("Saved"), detailsOutput)
	case ".md":
		page, err := doc.Html()
		if err != nil {
			return fmt.Errorf("render page: %w", err)
		}
		if err := output.SaveMarkdown(d, page, detailsOutput); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", ui.Success("Saved"), detailsOutput)
	default:
		return fmt.Errorf("unsupported output format %q (use .json or .md)", filepath.Ext(detailsOutput))
	}

	if detailsSaveMap == "" {
		return nil
	}
	if d.MapImage == nil {
		fmt.Fprintln(out, ui.Info("Bulletin has no map image"))
		return nil
	}

	dl := downloader.NewDownloader(a.HTTPClient(), a.Fetcher.UserAgent())
	res := dl.Download(cmd.Context(), *d.MapImage, downloader.DownloadOptions{
		OutputDir:  detailsSaveMap,
		ImagesOnly: true,
		Headers:    a.Config.Headers,
	})
	if res.Error != nil {
		return fmt.Errorf("download map: %w", res.Error)
	}
	fmt.Fprintf(out, "%s %s (%d bytes)\n", ui.Success("Map saved to"), res.FilePath, res.Size)
	return nil
}
