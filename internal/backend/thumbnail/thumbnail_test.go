package thumbnail

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buf.Bytes()
}

func decodeThumbnail(t *testing.T, dataURL string) image.Image {
	t.Helper()
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(dataURL, prefix) {
		t.Fatalf("expected jpeg data url, got prefix %q", dataURL[:min(len(dataURL), 30)])
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
	if err != nil {
		t.Fatalf("invalid base64 payload: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not a jpeg: %v", err)
	}
	return img
}

func TestNewThumbnailer_InvalidParams(t *testing.T) {
	tests := []struct {
		name    string
		w, h, q int
	}{
		{"zero width", 0, 200, 80},
		{"negative height", 300, -1, 80},
		{"quality too low", 300, 200, 0},
		{"quality too high", 300, 200, 101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewThumbnailer(tt.w, tt.h, tt.q); err == nil {
				t.Errorf("expected error for %dx%d q=%d", tt.w, tt.h, tt.q)
			}
		})
	}
}

func TestThumbnailer_Generate_Dimensions(t *testing.T) {
	thumbnailer, err := NewThumbnailer(DefaultMaxWidth, DefaultMaxHeight, DefaultQuality)
	if err != nil {
		t.Fatalf("failed to create thumbnailer: %v", err)
	}

	tests := []struct {
		name                  string
		width, height         int
		wantWidth, wantHeight int
	}{
		{"landscape wider than bounds", 600, 300, 300, 150},
		{"portrait taller than bounds", 100, 400, 50, 200},
		{"square larger than both", 1024, 1024, 200, 200},
		{"already small", 120, 80, 120, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thumb, err := thumbnailer.Generate(createTestPNG(t, tt.width, tt.height))
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			b := decodeThumbnail(t, thumb).Bounds()
			if b.Dx() != tt.wantWidth || b.Dy() != tt.wantHeight {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantWidth, tt.wantHeight, b.Dx(), b.Dy())
			}
		})
	}
}

func TestThumbnailer_Generate_SVG(t *testing.T) {
	thumbnailer, _ := NewThumbnailer(DefaultMaxWidth, DefaultMaxHeight, DefaultQuality)
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="600px" height="600px" viewBox="0 0 10 10">` +
		`<rect x="0" y="0" width="10" height="10" fill="#ff0000"/></svg>`)

	thumb, err := thumbnailer.Generate(svg)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	b := decodeThumbnail(t, thumb).Bounds()
	if b.Dx() != 200 || b.Dy() != 200 {
		t.Errorf("expected 200x200, got %dx%d", b.Dx(), b.Dy())
	}
}

// pngWithDeclaredSize returns a small PNG whose header claims width x height.
func pngWithDeclaredSize(t *testing.T, width, height uint32) []byte {
	t.Helper()
	data := createTestPNG(t, 4, 4)
	// signature (8) + IHDR length (4) + type (4), then width and height
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestThumbnailer_Generate_OversizedSource(t *testing.T) {
	thumbnailer, _ := NewThumbnailer(DefaultMaxWidth, DefaultMaxHeight, DefaultQuality)

	svgTests := []struct {
		name                  string
		width, height         string
		wantWidth, wantHeight int
	}{
		{"huge square", "200000", "200000", 200, 200},
		{"huge landscape", "400000", "100000", 300, 75},
		{"beyond int range", "99999999999999999999", "99999999999999999999", 300, 200},
	}
	for _, tt := range svgTests {
		t.Run("svg "+tt.name, func(t *testing.T) {
			svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="` + tt.width + `" height="` + tt.height +
				`" viewBox="0 0 10 10"><rect width="10" height="10" fill="#00f"/></svg>`)
			thumb, err := thumbnailer.Generate(svg)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			b := decodeThumbnail(t, thumb).Bounds()
			if b.Dx() != tt.wantWidth || b.Dy() != tt.wantHeight {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantWidth, tt.wantHeight, b.Dx(), b.Dy())
			}
		})
	}

	t.Run("png header above pixel limit", func(t *testing.T) {
		_, err := thumbnailer.Generate(pngWithDeclaredSize(t, 100000, 100000))
		if !errors.Is(err, ErrThumbnailFailure) {
			t.Errorf("expected ErrThumbnailFailure, got %v", err)
		}
	})
}

func TestThumbnailer_Generate_InvalidData(t *testing.T) {
	thumbnailer, _ := NewThumbnailer(DefaultMaxWidth, DefaultMaxHeight, DefaultQuality)
	_, err := thumbnailer.Generate([]byte("not a valid image"))
	if !errors.Is(err, ErrThumbnailFailure) {
		t.Errorf("expected ErrThumbnailFailure, got %v", err)
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{3000, 10, 300, 200, 300, 1},
		{10, 3000, 300, 200, 1, 200},
		{300, 200, 300, 200, 300, 200},
		{450, 300, 300, 200, 300, 200},
	}
	for _, tt := range tests {
		gotW, gotH := fitWithin(tt.w, tt.h, tt.maxW, tt.maxH)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("fitWithin(%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestNumericAttr(t *testing.T) {
	tests := []struct {
		tag    string
		attr   string
		want   int
		wantOk bool
	}{
		{`<svg width="123px" height="45"`, "width", 123, true},
		{`<svg width='77' height='45'`, "width", 77, true},
		{`<svg width="100%"`, "width", 100, true},
		{`<svg width="auto"`, "width", 0, false},
		{`<svg height="10"`, "width", 0, false},
		{`<svg width=50`, "width", 0, false},
		{`<svg width="99999999999999999999"`, "width", 0, false},
	}
	for _, tt := range tests {
		got, ok := numericAttr(tt.tag, tt.attr)
		if got != tt.want || ok != tt.wantOk {
			t.Errorf("numericAttr(%q, %q) = %d, %v; want %d, %v", tt.tag, tt.attr, got, ok, tt.want, tt.wantOk)
		}
	}
}

func TestIsSVGData(t *testing.T) {
	if !isSVGData([]byte(`  <?xml version="1.0"?><SVG width="1" height="1"></SVG>`)) {
		t.Error("expected svg to be detected case-insensitively")
	}
	if isSVGData(createTestPNG(t, 2, 2)) {
		t.Error("png detected as svg")
	}
	if isSVGData(nil) {
		t.Error("empty data detected as svg")
	}
}

func TestFallback(t *testing.T) {
	tests := []struct {
		imageURL string
		want     string
	}{
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"https://example.com/a.png", ""},
		{"data:text/plain;base64,AAAA", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Fallback(tt.imageURL); got != tt.want {
			t.Errorf("Fallback(%q) = %q, want %q", tt.imageURL, got, tt.want)
		}
	}
}
