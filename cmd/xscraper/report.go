package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"xscraper/pkg/report"
	"xscraper/pkg/storage"
	"xscraper/pkg/ui"
)

var (
	reportOut  string
	reportTop  int
	reportText bool
)

// reportCmd renders an overview of an existing result file.
var reportCmd = &cobra.Command{
	Use:   "report <results.csv>",
	Short: "Summarise a result CSV as an HTML report",
	Long: `Read a CSV written by 'xscraper scrape' and render posts per day and the
most active authors as an HTML page next to it.`,
	Example: `  xscraper report twitter_scrape_hashtag_golang.csv
  xscraper report results.csv --out overview.html --top 20
  xscraper report results.csv --text`,
	Args: cobra.ExactArgs(1),
	Run:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportOut, "out", "", "HTML output path (default: <csv>.html)")
	reportCmd.Flags().IntVar(&reportTop, "top", 10, "number of authors to list")
	reportCmd.Flags().BoolVar(&reportText, "text", false, "print the summary only, no HTML")
}

func runReport(cmd *cobra.Command, args []string) {
	path := args[0]
	recs, err := storage.ReadRecords(path)
	if err != nil {
		ui.PrintError("Failed to read results", err.Error())
		os.Exit(1)
	}
	if len(recs) == 0 {
		ui.PrintWarning("No posts in " + path)
		return
	}

	ui.PrintInfo("Posts", fmt.Sprintf("%d", len(recs)))
	fmt.Println("\nPosts per day:")
	for _, d := range report.PostsPerDay(recs) {
		fmt.Printf("  %s  %5d\n", d.Day, d.Count)
	}
	fmt.Println("\nTop authors:")
	for i, a := range report.TopAuthors(recs, reportTop) {
		fmt.Printf("  %2d. %-30s %5d\n", i+1, a.Author, a.Count)
	}
	fmt.Println()

	if reportText {
		return
	}

	out := reportOut
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + ".html"
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := report.WriteFile(out, title, recs); err != nil {
		ui.PrintError("Failed to write report", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Report written: " + out)
}
