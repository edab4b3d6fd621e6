package imports

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"sort"
	"strings"

	product "github.com/printforge/printforge-backend/internal/products"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

// maxArchiveEntryBytes bounds a single extracted file to guard against
// zip bombs.
const maxArchiveEntryBytes = 64 << 20

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// ArchiveFile is one image extracted from an import archive.
type ArchiveFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// Archive holds the extracted image entries of an import ZIP.
type Archive struct {
	Files []ArchiveFile
}

// ExtractArchive unpacks image entries from a ZIP document. Directories and
// non-image entries are skipped.
func ExtractArchive(data []byte) (*Archive, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "archive is not a valid zip document")
	}

	archive := &Archive{}
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := path.Base(strings.ReplaceAll(entry.Name, "\\", "/"))
		if strings.HasPrefix(name, ".") {
			continue
		}
		mime, ok := imageExtensions[strings.ToLower(path.Ext(name))]
		if !ok {
			continue
		}
		if entry.UncompressedSize64 > maxArchiveEntryBytes {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "archive entry "+name+" is too large")
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "open archive entry "+name)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxArchiveEntryBytes+1))
		closeErr := rc.Close()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read archive entry "+name)
		}
		if closeErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, closeErr, "close archive entry "+name)
		}
		if len(content) > maxArchiveEntryBytes {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "archive entry "+name+" is too large")
		}
		archive.Files = append(archive.Files, ArchiveFile{Name: name, MimeType: mime, Data: content})
	}

	sort.Slice(archive.Files, func(i, j int) bool {
		return archive.Files[i].Name < archive.Files[j].Name
	})
	return archive, nil
}

// MatchFiles assigns archive images to SKUs by substring match on the
// normalized file name. Returns per-SKU file names plus the count of files
// matching no SKU.
func (a *Archive) MatchFiles(skus []string) (map[string][]string, int) {
	matches := make(map[string][]string, len(skus))
	unmatched := 0

	normalized := make([]string, len(skus))
	for i, sku := range skus {
		normalized[i] = product.NormalizeSKU(sku)
	}

	for _, file := range a.Files {
		fileKey := product.NormalizeSKU(strings.TrimSuffix(file.Name, path.Ext(file.Name)))
		matchedSKU := ""
		for _, sku := range normalized {
			if sku == "" || !strings.Contains(fileKey, sku) {
				continue
			}
			// Prefer the longest SKU when several match the same file.
			if len(sku) > len(matchedSKU) {
				matchedSKU = sku
			}
		}
		if matchedSKU == "" {
			unmatched++
			continue
		}
		matches[matchedSKU] = append(matches[matchedSKU], file.Name)
	}
	return matches, unmatched
}

// File returns the named entry, if present.
func (a *Archive) File(name string) (ArchiveFile, bool) {
	for _, f := range a.Files {
		if f.Name == name {
			return f, true
		}
	}
	return ArchiveFile{}, false
}
