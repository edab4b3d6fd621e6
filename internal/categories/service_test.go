package category

import (
	"testing"

	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Mugs", "mugs"},
		{"spaces", "Phone Cases", "phone-cases"},
		{"punctuation", "T-Shirts & Hoodies!", "t-shirts-hoodies"},
		{"leadingTrailing", "  Stickers  ", "stickers"},
		{"collapsed", "A  --  B", "a-b"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Slugify(tc.in); got != tc.want {
				t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestValidateSlug(t *testing.T) {
	valid := []string{"mugs", "phone-cases", "tier-2"}
	for _, slug := range valid {
		if err := validateSlug(slug); err != nil {
			t.Fatalf("expected %q to be valid, got %v", slug, err)
		}
	}

	invalid := []string{"", "Phone Cases", "-mugs", "mugs-", "UPPER", "a--b"}
	for _, slug := range invalid {
		err := validateSlug(slug)
		if err == nil {
			t.Fatalf("expected %q to be invalid", slug)
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %q, got %v", slug, err)
		}
	}
}
