package product

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/printforge/printforge-backend/pkg/db/models"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

// exportHeader mirrors the bulk-import template so exports can be re-imported.
var exportHeader = []string{"name", "category", "sku", "price", "status", "description", "tags"}

// ExportCatalogCSV renders the full catalog as a CSV document.
func (s *service) ExportCatalogCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.repo.ListAllForExport(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products for export")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv header")
	}
	for i := range rows {
		if err := w.Write(exportRecord(&rows[i])); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flush csv")
	}
	return buf.Bytes(), nil
}

func exportRecord(p *models.Product) []string {
	categorySlug := ""
	if p.Category != nil {
		categorySlug = p.Category.Slug
	}
	description := ""
	if p.Description != nil {
		description = *p.Description
	}
	return []string{
		p.Name,
		categorySlug,
		p.SKU,
		FormatPrice(p.PriceCents),
		string(p.Status),
		description,
		strings.Join(p.Tags, ";"),
	}
}

// FormatPrice renders cents as a decimal currency amount, e.g. 1999 -> "19.99".
func FormatPrice(cents int) string {
	return decimal.New(int64(cents), -2).StringFixed(2)
}

// ParsePrice converts a decimal currency string to cents, rejecting negatives
// and sub-cent precision.
func ParsePrice(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price is required")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price must be a decimal number")
	}
	if d.IsNegative() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	cents := d.Mul(decimal.New(100, 0))
	if !cents.IsInteger() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price precision is limited to cents")
	}
	value := cents.IntPart()
	if value > int64(maxPriceCents) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price exceeds the maximum of "+strconv.Itoa(maxPriceCents/100))
	}
	return int(value), nil
}

const maxPriceCents = 100_000_000
