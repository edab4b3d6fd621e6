package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/pkg/enums"
	"github.com/printforge/printforge-backend/pkg/pagination"
)

// ProductListFilters describe the supported filter knobs for the listing endpoints.
type ProductListFilters struct {
	CategoryID    *uuid.UUID           `json:"category_id,omitempty"`
	Status        *enums.ProductStatus `json:"status,omitempty"`
	PriceMinCents *int                 `json:"price_min_cents,omitempty"`
	PriceMaxCents *int                 `json:"price_max_cents,omitempty"`
	Tag           string               `json:"tag,omitempty"`
	Query         string               `json:"q,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter products.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
	// PublicOnly restricts results to active products for unauthenticated reads.
	PublicOnly bool
}

// ProductSummary is the condensed listing row.
type ProductSummary struct {
	ID         uuid.UUID  `json:"id"`
	SKU        string     `json:"sku"`
	Name       string     `json:"name"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	PriceCents int        `json:"price_cents"`
	Status     string     `json:"status"`
	Tags       []string   `json:"tags"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ProductListResult is a page of products plus the cursor for the next page.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}
