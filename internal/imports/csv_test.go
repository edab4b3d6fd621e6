package imports

import (
	"strings"
	"testing"

	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

func TestParseCSVValidDocument(t *testing.T) {
	doc := strings.Join([]string{
		"name,category,sku,price,status,description,tags",
		"Classic Tee,apparel,tee-001,19.99,draft,Soft cotton,cotton;unisex;cotton",
		"Enamel Mug,drinkware,MUG-9,12.50,active,,",
		"",
	}, "\n")

	rows, rowErrs, err := ParseCSV([]byte(doc), 100)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("expected no row errors, got %v", rowErrs)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.SKU != "TEE-001" {
		t.Errorf("expected sku normalized to TEE-001, got %q", first.SKU)
	}
	if first.PriceCents != 1999 {
		t.Errorf("expected 1999 cents, got %d", first.PriceCents)
	}
	if first.Status != enums.ProductStatusDraft {
		t.Errorf("expected draft status, got %q", first.Status)
	}
	if len(first.Tags) != 2 {
		t.Errorf("expected deduplicated tags, got %v", first.Tags)
	}
	if first.Description == nil || *first.Description != "Soft cotton" {
		t.Errorf("unexpected description %v", first.Description)
	}

	second := rows[1]
	if second.Description != nil {
		t.Errorf("expected nil description for empty field, got %q", *second.Description)
	}
	if second.Status != enums.ProductStatusActive {
		t.Errorf("expected active status, got %q", second.Status)
	}
}

func TestParseCSVRejectsBadHeader(t *testing.T) {
	doc := "title,category,sku,price,status\nTee,apparel,TEE-1,9.99,draft\n"
	_, _, err := ParseCSV([]byte(doc), 100)
	if err == nil {
		t.Fatal("expected header error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseCSVRowErrors(t *testing.T) {
	doc := strings.Join([]string{
		"name,category,sku,price,status",
		",apparel,TEE-1,9.99,draft",
		"Tee,apparel,TEE-2,not-a-price,draft",
		"Tee,apparel,TEE-3,9.99,bogus",
		"Tee,apparel,TEE-4,9.99,draft",
		"Other Tee,apparel,tee-4,8.99,draft",
	}, "\n")

	rows, rowErrs, err := ParseCSV([]byte(doc), 100)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if len(rows) != 1 || rows[0].SKU != "TEE-4" {
		t.Fatalf("expected only TEE-4 to survive, got %v", rows)
	}
	if len(rowErrs) != 4 {
		t.Fatalf("expected 4 row errors, got %v", rowErrs)
	}
	if !strings.Contains(rowErrs[3].Message, "duplicate sku") {
		t.Errorf("expected duplicate sku error, got %q", rowErrs[3].Message)
	}
}

func TestParseCSVEnforcesMaxRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,category,sku,price,status\n")
	for i := 0; i < 3; i++ {
		b.WriteString("Tee,apparel,SKU-")
		b.WriteByte(byte('A' + i))
		b.WriteString(",9.99,draft\n")
	}

	_, _, err := ParseCSV([]byte(b.String()), 2)
	if err == nil {
		t.Fatal("expected max rows error")
	}
	if !strings.Contains(err.Error(), "maximum") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseCSVEmptyDocument(t *testing.T) {
	if _, _, err := ParseCSV([]byte(""), 100); err == nil {
		t.Fatal("expected error for empty document")
	}
	if _, _, err := ParseCSV([]byte("name,category,sku,price,status\n"), 100); err == nil {
		t.Fatal("expected error for header-only document")
	}
}

func TestTemplateCSVRoundTrips(t *testing.T) {
	rows, rowErrs, err := ParseCSV(TemplateCSV(), 100)
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("template has row errors: %v", rowErrs)
	}
	if len(rows) != 1 || rows[0].SKU != "TEE-001" {
		t.Fatalf("unexpected template rows: %v", rows)
	}
}
