// Package report summarizes a clean product table: descriptive statistics,
// brand rankings and sub-category trends.
package report

import (
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/IshaanNene/catalogcrawl/internal/fields"
	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// UnknownSubCategory labels products whose name is empty.
const UnknownSubCategory = "Unknown"

// Summary is the describe() row of one numeric column.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	P25    float64
	P50    float64
	P75    float64
	Max    float64
}

// BrandCount is a brand and its number of products.
type BrandCount struct {
	Brand string
	Count int
}

// BrandDiscount is a brand and its average discount percentage.
type BrandDiscount struct {
	Brand       string
	AvgDiscount float64
}

// SubCategory aggregates the products sharing the first word of their name.
type SubCategory struct {
	Name         string
	Count        int
	AvgSalePrice float64
	AvgRating    float64
}

// Report is the full analysis of a clean product table.
type Report struct {
	Total               int
	Rated               int
	Describe            []Summary
	TopBrandsByCount    []BrandCount
	TopBrandsByDiscount []BrandDiscount
	TopSubCategories    []SubCategory
}

// Build analyzes records. Rankings hold at most topN entries; ties are broken
// by name so the output is deterministic.
func Build(records []types.CleanRecord, topN int) *Report {
	r := &Report{Total: len(records)}

	columns := []struct {
		name string
		get  func(types.CleanRecord) float64
	}{
		{types.ColSalePrice, func(c types.CleanRecord) float64 { return c.SalePrice }},
		{types.ColMRP, func(c types.CleanRecord) float64 { return c.MRP }},
		{types.ColDiscountPercentage, func(c types.CleanRecord) float64 { return c.DiscountPercentage }},
		{types.ColRating, func(c types.CleanRecord) float64 { return c.Rating }},
		{types.ColNumberOfReviews, func(c types.CleanRecord) float64 { return float64(c.NumberOfReviews) }},
	}
	for _, col := range columns {
		data := make(stats.Float64Data, len(records))
		for i, rec := range records {
			data[i] = col.get(rec)
		}
		r.Describe = append(r.Describe, describe(col.name, data))
	}

	for _, rec := range records {
		if rec.Rating > 0 {
			r.Rated++
		}
	}

	r.TopBrandsByCount = brandsByCount(records, topN)
	r.TopBrandsByDiscount = brandsByDiscount(records, topN)
	r.TopSubCategories = subCategories(records, topN)
	return r
}

// describe mirrors a dataframe describe(): sample standard deviation and
// linearly interpolated quartiles. Undefined values are NaN.
func describe(name string, data stats.Float64Data) Summary {
	s := Summary{Column: name, Count: data.Len()}
	nan := math.NaN()
	if s.Count == 0 {
		s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	s.Mean, _ = stats.Mean(data)
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.P50, _ = stats.Median(data)
	if s.Count > 1 {
		s.Std, _ = stats.StandardDeviationSample(data)
	} else {
		s.Std = nan
	}

	sorted := append(stats.Float64Data(nil), data...)
	sort.Float64s(sorted)
	s.P25 = quantile(sorted, 0.25)
	s.P75 = quantile(sorted, 0.75)
	return s
}

// quantile interpolates linearly between the closest ranks of sorted data.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func brandsByCount(records []types.CleanRecord, topN int) []BrandCount {
	counts := map[string]int{}
	for _, rec := range records {
		counts[rec.Brand]++
	}

	out := make([]BrandCount, 0, len(counts))
	for brand, n := range counts {
		out = append(out, BrandCount{Brand: brand, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Brand < out[j].Brand
	})
	return head(out, topN)
}

func brandsByDiscount(records []types.CleanRecord, topN int) []BrandDiscount {
	groups := map[string]stats.Float64Data{}
	for _, rec := range records {
		groups[rec.Brand] = append(groups[rec.Brand], rec.DiscountPercentage)
	}

	out := make([]BrandDiscount, 0, len(groups))
	for brand, data := range groups {
		avg, _ := stats.Mean(data)
		out = append(out, BrandDiscount{Brand: brand, AvgDiscount: avg})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgDiscount != out[j].AvgDiscount {
			return out[i].AvgDiscount > out[j].AvgDiscount
		}
		return out[i].Brand < out[j].Brand
	})
	return head(out, topN)
}

// SubCategoryOf returns the title-cased first word of a product name.
func SubCategoryOf(productName string) string {
	words := strings.Fields(productName)
	if len(words) == 0 {
		return UnknownSubCategory
	}
	return fields.TitleCase(words[0])
}

func subCategories(records []types.CleanRecord, topN int) []SubCategory {
	type group struct {
		prices  stats.Float64Data
		ratings stats.Float64Data
	}
	groups := map[string]*group{}
	for _, rec := range records {
		name := SubCategoryOf(rec.ProductName)
		g, ok := groups[name]
		if !ok {
			g = &group{}
			groups[name] = g
		}
		g.prices = append(g.prices, rec.SalePrice)
		g.ratings = append(g.ratings, rec.Rating)
	}

	out := make([]SubCategory, 0, len(groups))
	for name, g := range groups {
		price, _ := stats.Mean(g.prices)
		rating, _ := stats.Mean(g.ratings)
		out = append(out, SubCategory{
			Name:         name,
			Count:        len(g.prices),
			AvgSalePrice: price,
			AvgRating:    rating,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return head(out, topN)
}

func head[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
