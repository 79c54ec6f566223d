// Package report renders an HTML overview of a collected result set.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"xscraper/pkg/filter"
	"xscraper/pkg/models"
)

// DayCount is the number of records posted on one UTC calendar day.
type DayCount struct {
	Day   string
	Count int
}

// AuthorCount is the number of records by one author.
type AuthorCount struct {
	Author string
	Count  int
}

// PostsPerDay buckets records by UTC day, oldest first. Records whose
// timestamp does not parse are counted under "unknown" at the end.
func PostsPerDay(recs []models.Record) []DayCount {
	counts := make(map[string]int)
	unknown := 0
	for _, r := range recs {
		ts, err := filter.ParseTimestamp(r.Timestamp)
		if err != nil {
			unknown++
			continue
		}
		counts[ts.UTC().Format(models.DateLayout)]++
	}

	days := make([]DayCount, 0, len(counts)+1)
	for d, c := range counts {
		days = append(days, DayCount{Day: d, Count: c})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	if unknown > 0 {
		days = append(days, DayCount{Day: "unknown", Count: unknown})
	}
	return days
}

// TopAuthors returns the n most frequent authors, ties broken by name.
func TopAuthors(recs []models.Record, n int) []AuthorCount {
	counts := make(map[string]int)
	for _, r := range recs {
		counts[r.Author]++
	}

	authors := make([]AuthorCount, 0, len(counts))
	for a, c := range counts {
		authors = append(authors, AuthorCount{Author: a, Count: c})
	}
	sort.Slice(authors, func(i, j int) bool {
		if authors[i].Count != authors[j].Count {
			return authors[i].Count > authors[j].Count
		}
		return authors[i].Author < authors[j].Author
	})
	if n > 0 && len(authors) > n {
		authors = authors[:n]
	}
	return authors
}

// Render writes the charts for recs to w.
func Render(w io.Writer, title string, recs []models.Record) error {
	days := PostsPerDay(recs)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d posts", len(recs))}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros, PageTitle: title}),
	)
	x := make([]string, 0, len(days))
	y := make([]opts.BarData, 0, len(days))
	for _, d := range days {
		x = append(x, d.Day)
		y = append(y, opts.BarData{Value: d.Count})
	}
	bar.SetXAxis(x).AddSeries("Posts per day", y)

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Top authors"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)
	var items []opts.PieData
	for _, a := range TopAuthors(recs, 10) {
		items = append(items, opts.PieData{Name: a.Author, Value: a.Count})
	}
	pie.AddSeries("Authors", items)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render daily chart: %w", err)
	}
	if err := pie.Render(w); err != nil {
		return fmt.Errorf("failed to render author chart: %w", err)
	}
	return nil
}

// WriteFile renders the report to path.
func WriteFile(path, title string, recs []models.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := Render(f, title, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
