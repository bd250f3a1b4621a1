package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// section is one titled table of the report.
type section struct {
	title string
	table table.Writer
}

func (r *Report) sections() []section {
	describe := table.NewWriter()
	describe.AppendHeader(table.Row{"", "count", "mean", "std", "min", "25%", "50%", "75%", "max"})
	for _, s := range r.Describe {
		describe.AppendRow(table.Row{
			s.Column, s.Count,
			num(s.Mean), num(s.Std), num(s.Min), num(s.P25), num(s.P50), num(s.P75), num(s.Max),
		})
	}

	byCount := table.NewWriter()
	byCount.AppendHeader(table.Row{"Brand", "count"})
	for _, b := range r.TopBrandsByCount {
		byCount.AppendRow(table.Row{b.Brand, b.Count})
	}

	byDiscount := table.NewWriter()
	byDiscount.AppendHeader(table.Row{"Brand", "DiscountPercentage"})
	for _, b := range r.TopBrandsByDiscount {
		byDiscount.AppendRow(table.Row{b.Brand, num(b.AvgDiscount)})
	}

	subcats := table.NewWriter()
	subcats.AppendHeader(table.Row{"SubCategory", "NumberOfProducts", "AverageSalePrice", "AverageRating"})
	for _, c := range r.TopSubCategories {
		subcats.AppendRow(table.Row{c.Name, c.Count, num(c.AvgSalePrice), num(c.AvgRating)})
	}

	rated := table.NewWriter()
	rated.AppendHeader(table.Row{"Products", "Rated", "Unrated"})
	rated.AppendRow(table.Row{r.Total, r.Rated, r.Total - r.Rated})

	n := len(r.TopBrandsByCount)
	return []section{
		{"1. Descriptive Statistics for Prices and Ratings", describe},
		{fmt.Sprintf("2. Top %d Brands by Number of Products", n), byCount},
		{fmt.Sprintf("3. Top %d Brands by Highest Average Discount", len(r.TopBrandsByDiscount)), byDiscount},
		{fmt.Sprintf("4. Pricing and Rating Trends by Top %d Sub-Categories", len(r.TopSubCategories)), subcats},
		{"5. Rated Products", rated},
	}
}

// Render prints the report as tables.
func (r *Report) Render(w io.Writer) {
	for _, s := range r.sections() {
		s.table.SetTitle(s.title)
		s.table.SetStyle(table.StyleRounded)
		fmt.Fprintln(w, s.table.Render())
		fmt.Fprintln(w)
	}
}

// WriteCSV writes the report as titled CSV sections separated by blank lines.
func (r *Report) WriteCSV(path string) error {
	var b strings.Builder
	b.WriteString("E-commerce Product Pricing Analysis\n\n")
	for _, s := range r.sections() {
		b.WriteString(s.title)
		b.WriteString("\n")
		b.WriteString(s.table.RenderCSV())
		b.WriteString("\n\n")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// num rounds to two decimals for display.
func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
