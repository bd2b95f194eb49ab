package tui

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AlverezYari/featherlink/pkg/camera"
)

const upperHalfBlock = "▀"

// renderPreview draws a frame as rows of half-block cells, two pixel rows per
// terminal line. It fails on payloads that are not base64 JPEG; the caller
// shows a placeholder instead.
func renderPreview(f camera.Frame, cols int) (string, error) {
	raw, err := f.Decode()
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode jpeg: %w", err)
	}
	return halfBlocks(img, cols), nil
}

func halfBlocks(img image.Image, cols int) string {
	b := img.Bounds()
	if cols <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}
	if cols > b.Dx() {
		cols = b.Dx()
	}
	// Terminal cells are roughly twice as tall as wide, and each line holds
	// two pixel rows, so the pixel grid keeps the image aspect.
	rows := b.Dy() * cols / b.Dx()
	if rows < 2 {
		rows = 2
	}
	rows -= rows % 2

	sample := func(x, y int) lipgloss.Color {
		sx := b.Min.X + x*b.Dx()/cols
		sy := b.Min.Y + y*b.Dy()/rows
		r, g, bl, _ := img.At(sx, sy).RGBA()
		return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, bl>>8))
	}

	var out strings.Builder
	for y := 0; y < rows; y += 2 {
		for x := 0; x < cols; x++ {
			out.WriteString(lipgloss.NewStyle().
				Foreground(sample(x, y)).
				Background(sample(x, y+1)).
				Render(upperHalfBlock))
		}
		if y+2 < rows {
			out.WriteByte('\n')
		}
	}
	return out.String()
}
