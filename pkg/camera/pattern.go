package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var bars = []color.RGBA{
	{R: 192, G: 192, B: 192, A: 255},
	{R: 192, G: 192, B: 0, A: 255},
	{R: 0, G: 192, B: 192, A: 255},
	{R: 0, G: 192, B: 0, A: 255},
	{R: 192, G: 0, B: 192, A: 255},
	{R: 192, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 192, A: 255},
}

// PatternSource renders a colour bar test card with a frame counter. It
// stands in for a real capture device.
type PatternSource struct {
	width   int
	height  int
	quality int
	now     func() time.Time

	mu    sync.Mutex
	count uint64
}

func NewPatternSource(width, height int) *PatternSource {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	return &PatternSource{
		width:   width,
		height:  height,
		quality: 75,
		now:     time.Now,
	}
}

func (p *PatternSource) Frame() ([]byte, error) {
	p.mu.Lock()
	p.count++
	n := p.count
	p.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	barWidth := p.width / len(bars)
	if barWidth == 0 {
		barWidth = 1
	}
	for i, c := range bars {
		r := image.Rect(i*barWidth, 0, (i+1)*barWidth, p.height)
		if i == len(bars)-1 {
			r.Max.X = p.width
		}
		draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
	}

	// Label strip along the bottom.
	strip := image.Rect(0, p.height-20, p.width, p.height)
	draw.Draw(img, strip, image.NewUniform(color.Black), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(6, p.height-6),
	}
	d.DrawString(fmt.Sprintf("frame %d  %s", n, p.now().Format("15:04:05.000")))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %v", err)
	}
	return buf.Bytes(), nil
}

// Count returns how many frames have been produced.
func (p *PatternSource) Count() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
