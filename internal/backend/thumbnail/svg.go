package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
)

// maxSVGSide caps declared SVG dimensions; larger values are treated as absent.
const maxSVGSide = 1 << 20

// isSVGData performs a lightweight detection of SVG content from raw bytes.
// It checks for "<svg" tag or SVG namespace in the initial portion of the data.
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\"")) ||
		bytes.Contains(header, []byte("xmlns='http://www.w3.org/2000/svg'"))
}

// svgSize extracts explicit width and height attributes from the root element.
func svgSize(data []byte) (int, int, bool) {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	s := strings.ToLower(string(data[:n]))
	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	j := strings.Index(s[i:], ">")
	if j < 0 {
		j = len(s)
	} else {
		j = i + j
	}
	tag := s[i:j]

	w, wOk := numericAttr(tag, "width")
	h, hOk := numericAttr(tag, "height")
	if wOk && hOk {
		return w, h, true
	}
	return 0, 0, false
}

// numericAttr reads the leading integer of a quoted attribute value, e.g. width="123px".
func numericAttr(tag, attr string) (int, bool) {
	pos := strings.Index(tag, " "+attr+"=")
	if pos < 0 {
		return 0, false
	}
	rest := tag[pos+len(attr)+2:]
	if len(rest) == 0 || (rest[0] != '"' && rest[0] != '\'') {
		return 0, false
	}
	quote := rest[0]
	rest = rest[1:]
	if end := strings.IndexByte(rest, quote); end >= 0 {
		rest = rest[:end]
	}

	num := 0
	found := false
	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		if ch < '0' || ch > '9' {
			break
		}
		found = true
		num = num*10 + int(ch-'0')
		if num > maxSVGSide {
			return 0, false
		}
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}

// renderSVG rasterizes an SVG onto a white canvas of the given size.
func renderSVG(svgData []byte, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", width, height)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	dst := whiteCanvas(width, height)
	scanner := rasterx.NewScannerGV(width, height, dst, dst.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}

func whiteCanvas(w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return dst
}
