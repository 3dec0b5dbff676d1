package penmark

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
)

const jpegQuality = 80

// processImage decodes an image from src, resizes it to maxWidth if it
// is wider, and encodes it as JPEG. Returns metadata and the encoded bytes.
func processImage(src io.Reader, maxWidth int) (ImageInfo, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return ImageInfo{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if maxWidth > 0 && w > maxWidth {
		newH := h * maxWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return ImageInfo{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return ImageInfo{
		Width:  w,
		Height: h,
		Size:   buf.Len(),
	}, buf.Bytes(), nil
}

func isJPEG(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

// assetData reads an asset file for the output tree. JPEGs wider than
// the configured maximum are resized and re-encoded; everything else
// passes through untouched so no file ever changes name or format.
func (e *Engine) assetData(path string) ([]byte, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	if !isJPEG(path) || e.Config.MaxImageWidth <= 0 {
		return raw, false, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || cfg.Width <= e.Config.MaxImageWidth {
		return raw, false, nil
	}

	start := time.Now()
	img, data, err := processImage(bytes.NewReader(raw), e.Config.MaxImageWidth)
	if err != nil {
		// Leave a broken image as-is rather than failing the build.
		e.log.Warn("image resize failed", "path", path, "error", err)
		return raw, false, nil
	}
	e.log.Debug("resized image",
		"path", path, "width", img.Width, "height", img.Height,
		"bytes", img.Size, "took", time.Since(start))
	return data, true, nil
}
