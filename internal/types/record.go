package types

// Column names shared by the raw and clean tables.
const (
	ColBrand              = "Brand"
	ColProductName        = "ProductName"
	ColCategory           = "Category"
	ColMRP                = "MRP"
	ColSalePrice          = "SalePrice"
	ColDiscountPercentage = "DiscountPercentage"
	ColRating             = "Rating"
	ColNumberOfReviews    = "NumberOfReviews"
	ColURL                = "URL"
)

// RawColumns is the column order of the scrape stage output.
var RawColumns = []string{
	ColBrand, ColProductName, ColCategory, ColMRP, ColSalePrice,
	ColRating, ColNumberOfReviews, ColURL,
}

// CleanColumns is the column order of the normalize stage output.
var CleanColumns = []string{
	ColBrand, ColProductName, ColCategory, ColMRP, ColSalePrice,
	ColDiscountPercentage, ColRating, ColNumberOfReviews, ColURL,
}

// RawRecord is one product tile as extracted from a listing page.
// Every field is text as it appeared on the page; an empty string means
// the field was absent. URL is the deduplication key.
type RawRecord struct {
	Brand           string
	ProductName     string
	Category        string
	MRP             string
	SalePrice       string
	Rating          string
	NumberOfReviews string
	URL             string
}

// Row returns the record's values in RawColumns order.
func (r RawRecord) Row() []string {
	return []string{
		r.Brand, r.ProductName, r.Category, r.MRP, r.SalePrice,
		r.Rating, r.NumberOfReviews, r.URL,
	}
}

// CleanRecord is a normalized, typed product row.
type CleanRecord struct {
	Brand              string  `json:"brand"               bson:"brand"`
	ProductName        string  `json:"product_name"        bson:"product_name"`
	Category           string  `json:"category"            bson:"category"`
	MRP                float64 `json:"mrp"                 bson:"mrp"`
	SalePrice          float64 `json:"sale_price"          bson:"sale_price"`
	DiscountPercentage float64 `json:"discount_percentage" bson:"discount_percentage"`
	Rating             float64 `json:"rating"              bson:"rating"`
	NumberOfReviews    int     `json:"number_of_reviews"   bson:"number_of_reviews"`
	URL                string  `json:"url"                 bson:"url"`
}
