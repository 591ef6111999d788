// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package asset

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// maxDecodePixels rejects images whose header announces an absurd canvas.
const maxDecodePixels = 64 << 20

// Codec is the image capability used by the [Normalizer]:
// decode bytes into an image and render an image at a target size.
type Codec interface {
	// Decode parses data into an image.
	Decode(data []byte) (image.Image, error)

	// Render scales src to width x height and encodes the result.
	Render(src image.Image, width, height int) ([]byte, error)

	// MediaType is the type of the bytes produced by Render.
	MediaType() string
}

// JPEGCodec decodes JPEG, PNG, GIF and WebP and renders lossy JPEG.
type JPEGCodec struct {
	// Quality is the JPEG quality, 1-100.
	Quality int
}

// Decode implements [Codec].
func (codec JPEGCodec) Decode(data []byte) (image.Image, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("asset: read image header: %w", err)
	}
	if config.Width <= 0 || config.Height <= 0 || config.Width*config.Height > maxDecodePixels {
		return nil, fmt.Errorf("asset: unsupported image size %dx%d", config.Width, config.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("asset: decode image: %w", err)
	}
	return img, nil
}

// Render implements [Codec]. Transparent regions are flattened onto white.
func (codec JPEGCodec) Render(src image.Image, width, height int) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buffer bytes.Buffer
	if err := jpeg.Encode(&buffer, dst, &jpeg.Options{Quality: codec.Quality}); err != nil {
		return nil, fmt.Errorf("asset: encode jpeg: %w", err)
	}
	return buffer.Bytes(), nil
}

// MediaType implements [Codec].
func (codec JPEGCodec) MediaType() string {
	return "image/jpeg"
}
