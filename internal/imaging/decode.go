package imaging

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

// maxDecodeDimension guards against decompression bombs before a full decode.
const maxDecodeDimension = 16384

// Decode parses PNG or JPEG bytes into an image, rejecting unsupported
// formats and oversized dimensions.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image payload is empty")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnprocessable, "image format not recognized (png or jpeg required)")
	}
	if format != "png" && format != "jpeg" {
		return nil, pkgerrors.New(pkgerrors.CodeUnprocessable, "unsupported image format "+format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnprocessable, "image has no pixels")
	}
	if cfg.Width > maxDecodeDimension || cfg.Height > maxDecodeDimension {
		return nil, pkgerrors.New(pkgerrors.CodeUnprocessable, "image dimensions exceed decode limit")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnprocessable, err, "decode image")
	}
	return img, nil
}

// Dimensions reads pixel dimensions from the image header without a full decode.
func Dimensions(data []byte) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "image payload is empty")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, pkgerrors.New(pkgerrors.CodeUnprocessable, "image format not recognized (png or jpeg required)")
	}
	if format != "png" && format != "jpeg" {
		return 0, 0, pkgerrors.New(pkgerrors.CodeUnprocessable, "unsupported image format "+format)
	}
	return cfg.Width, cfg.Height, nil
}
