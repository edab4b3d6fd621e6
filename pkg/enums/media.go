package enums

import "fmt"

// MediaKind categorizes what an uploaded object is used for.
type MediaKind string

const (
	MediaKindProductImage    MediaKind = "product_image"
	MediaKindDetectionSource MediaKind = "detection_source"
	MediaKindImportArchive   MediaKind = "import_archive"
	MediaKindImportCSV       MediaKind = "import_csv"
)

var validMediaKinds = []MediaKind{
	MediaKindProductImage,
	MediaKindDetectionSource,
	MediaKindImportArchive,
	MediaKindImportCSV,
}

func (k MediaKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known MediaKind.
func (k MediaKind) IsValid() bool {
	for _, candidate := range validMediaKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseMediaKind converts raw input into a MediaKind.
func ParseMediaKind(value string) (MediaKind, error) {
	for _, candidate := range validMediaKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media kind %q", value)
}

// MediaStatus tracks the upload lifecycle of a media row.
type MediaStatus string

const (
	MediaStatusPending  MediaStatus = "pending"
	MediaStatusUploaded MediaStatus = "uploaded"
	MediaStatusFailed   MediaStatus = "failed"
)

func (s MediaStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known MediaStatus.
func (s MediaStatus) IsValid() bool {
	switch s {
	case MediaStatusPending, MediaStatusUploaded, MediaStatusFailed:
		return true
	}
	return false
}
