package item

import (
	"github.com/shopspring/decimal"
)

// Item represents a store item as served by the remote item service.
type Item struct {
	ID       string
	Name     string
	ImageURL string
	Price    decimal.Decimal
	Discount decimal.Decimal
}

// List is the response envelope of the item listing endpoint.
type List struct {
	Items []Item
}
