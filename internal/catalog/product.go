package catalog

import "github.com/shopspring/decimal"

// Product is the catalog's view of a sellable vehicle or part. The
// catalog owns and mutates it; this service only reads.
type Product struct {
	ID           string          `json:"productId"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	DisplayImage string          `json:"displayImage"`
}
