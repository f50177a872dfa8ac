package fetch

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/webp"
)

type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatWEBP
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatWEBP:
		return "webp"
	}
	return "unknown"
}

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Sniff looks at the leading bytes only; it does not check the rest of the file.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 3 && data[0] == 0xff && data[1] == 0xd8 && data[2] == 0xff:
		return FormatJPEG
	case bytes.HasPrefix(data, pngMagic):
		return FormatPNG
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FormatWEBP
	}
	return FormatUnknown
}

// Decode picks the decoder by signature, not by what the survey claims to serve.
func Decode(data []byte) (image.Image, error) {
	var img image.Image
	var err error
	r := bytes.NewReader(data)

	switch f := Sniff(data); f {
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatWEBP:
		img, err = webp.Decode(r)
	default:
		return nil, ErrNotAnImage
	}
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}
