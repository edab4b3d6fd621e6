package imports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	product "github.com/printforge/printforge-backend/internal/products"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

// csvHeader defines the bulk-import template columns. The trailing two
// columns are optional.
var csvHeader = []string{"name", "category", "sku", "price", "status", "description", "tags"}

const requiredColumns = 5

// ParsedRow is one validated CSV line ready to become an import item.
type ParsedRow struct {
	RowNumber    int
	Name         string
	CategorySlug string
	SKU          string
	PriceCents   int
	Status       enums.ProductStatus
	Description  *string
	Tags         []string
}

// RowError pinpoints a rejected CSV line.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ParseCSV validates the import document and returns its rows. Any invalid
// line rejects the whole document so a job never starts half-broken.
func ParseCSV(data []byte, maxRows int) ([]ParsedRow, []RowError, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "csv document is empty or unreadable")
	}
	if err := validateHeader(header); err != nil {
		return nil, nil, err
	}

	var rows []ParsedRow
	var rowErrs []RowError
	seenSKUs := make(map[string]int)
	rowNumber := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNumber++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNumber, Message: "malformed csv line"})
			continue
		}
		if isBlankRecord(record) {
			continue
		}
		if maxRows > 0 && len(rows) >= maxRows {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("csv exceeds the maximum of %d rows", maxRows))
		}

		row, rowErr := parseRecord(rowNumber, record)
		if rowErr != nil {
			rowErrs = append(rowErrs, *rowErr)
			continue
		}
		if firstRow, dup := seenSKUs[row.SKU]; dup {
			rowErrs = append(rowErrs, RowError{
				Row:     rowNumber,
				Message: fmt.Sprintf("duplicate sku %q (first used on row %d)", row.SKU, firstRow),
			})
			continue
		}
		seenSKUs[row.SKU] = rowNumber
		rows = append(rows, *row)
	}

	if len(rows) == 0 && len(rowErrs) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "csv contains no data rows")
	}
	return rows, rowErrs, nil
}

func validateHeader(header []string) error {
	if len(header) < requiredColumns {
		return pkgerrors.New(pkgerrors.CodeValidation,
			"csv header must contain at least name, category, sku, price, status")
	}
	for i, want := range csvHeader {
		if i >= len(header) {
			break
		}
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("unexpected csv column %q, want %q", strings.TrimSpace(header[i]), want))
		}
	}
	return nil
}

func parseRecord(rowNumber int, record []string) (*ParsedRow, *RowError) {
	if len(record) < requiredColumns {
		return nil, &RowError{Row: rowNumber, Message: "too few columns"}
	}

	name := strings.TrimSpace(record[0])
	if name == "" {
		return nil, &RowError{Row: rowNumber, Message: "name is required"}
	}
	categorySlug := strings.ToLower(strings.TrimSpace(record[1]))
	if categorySlug == "" {
		return nil, &RowError{Row: rowNumber, Message: "category is required"}
	}
	sku := product.NormalizeSKU(record[2])
	if sku == "" {
		return nil, &RowError{Row: rowNumber, Message: "sku is required"}
	}
	priceCents, err := product.ParsePrice(record[3])
	if err != nil {
		return nil, &RowError{Row: rowNumber, Message: err.Error()}
	}
	status := enums.ProductStatus(strings.ToLower(strings.TrimSpace(record[4])))
	if status == "" {
		status = enums.ProductStatusDraft
	}
	if !status.IsValid() {
		return nil, &RowError{Row: rowNumber, Message: fmt.Sprintf("unknown status %q", record[4])}
	}

	row := &ParsedRow{
		RowNumber:    rowNumber,
		Name:         name,
		CategorySlug: categorySlug,
		SKU:          sku,
		PriceCents:   priceCents,
		Status:       status,
	}
	if len(record) > 5 {
		if desc := strings.TrimSpace(record[5]); desc != "" {
			row.Description = &desc
		}
	}
	if len(record) > 6 {
		row.Tags = splitTags(record[6])
	}
	return row, nil
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ";")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{})
	for _, p := range parts {
		tag := strings.ToLower(strings.TrimSpace(p))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// TemplateCSV renders the downloadable import template with one example row.
func TemplateCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(csvHeader)
	_ = w.Write([]string{"Classic Tee", "apparel", "TEE-001", "19.99", "draft", "Soft cotton crew neck", "cotton;unisex"})
	w.Flush()
	return buf.Bytes()
}
