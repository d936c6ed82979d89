// Package caption lays out wrapped, auto-scaled caption text for a canvas
// and emits the ffmpeg drawtext filter chain that renders it.
package caption

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Leading factor: line height is fontSize * leading.
const leading = 1.5

// minFontSize is the floor the auto-shrink pass will not go below; a block
// that still overflows at this size clips.
const minFontSize = 8

// Measurer reports the rendered pixel width of a line at a font size.
type Measurer interface {
	Width(text string, fontSize int) float64
}

// HeuristicMeasurer approximates glyph advance as a fixed fraction of the
// font size. Calibrated against DejaVu Sans, whose average advance is close
// to 0.55 em for mixed-case Latin text.
type HeuristicMeasurer struct {
	WidthFactor float64
}

func (m HeuristicMeasurer) Width(text string, fontSize int) float64 {
	factor := m.WidthFactor
	if factor <= 0 {
		factor = 0.55
	}
	return float64(len([]rune(text))) * float64(fontSize) * factor
}

// Renderer wraps and positions caption blocks.
type Renderer struct {
	measurer Measurer
	fontPath string
	margin   int
}

// NewRenderer builds a renderer for the given font file. A missing font file
// is logged and drawtext falls back to ffmpeg's built-in default font; it is
// never fatal.
func NewRenderer(measurer Measurer, fontPath string, margin int) *Renderer {
	if fontPath != "" {
		if _, err := os.Stat(fontPath); err != nil {
			log.Printf("[caption] font %s not usable (%v), falling back to default font", fontPath, err)
			fontPath = ""
		}
	}
	return &Renderer{measurer: measurer, fontPath: fontPath, margin: margin}
}

// Layout is a wrapped caption block positioned on a canvas.
type Layout struct {
	Lines      []string
	FontSize   int
	LineHeight float64
	StartY     float64 // top of the vertically centered block
	CanvasW    int
	CanvasH    int
}

// BlockHeight is the total height of the wrapped block.
func (l Layout) BlockHeight() float64 {
	return float64(len(l.Lines)) * l.LineHeight
}

// Layout wraps text to the canvas width budget and vertically centers the
// block. If the block is taller than the canvas, the font size is scaled by
// canvasH/blockHeight and the wrap runs exactly once more at the new size;
// a block that still overflows after that single pass clips.
func (r *Renderer) Layout(text string, canvasW, canvasH, fontSize int) Layout {
	budget := float64(canvasW - 2*r.margin)

	lines := r.wrap(text, budget, fontSize)
	blockHeight := float64(len(lines)) * float64(fontSize) * leading

	if blockHeight > float64(canvasH) {
		scaled := int(float64(fontSize) * float64(canvasH) / blockHeight)
		if scaled < minFontSize {
			scaled = minFontSize
		}
		log.Printf("[caption] block %.0fpx exceeds canvas %dpx, shrinking font %d -> %d", blockHeight, canvasH, fontSize, scaled)
		fontSize = scaled
		lines = r.wrap(text, budget, fontSize)
		blockHeight = float64(len(lines)) * float64(fontSize) * leading
	}

	return Layout{
		Lines:      lines,
		FontSize:   fontSize,
		LineHeight: float64(fontSize) * leading,
		StartY:     (float64(canvasH) - blockHeight) / 2,
		CanvasW:    canvasW,
		CanvasH:    canvasH,
	}
}

// wrap greedily packs words into lines no wider than the pixel budget. A
// word that cannot fit on a non-empty line starts the next one; a single
// word wider than the budget gets a line of its own.
func (r *Renderer) wrap(text string, budget float64, fontSize int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if r.measurer.Width(candidate, fontSize) > budget {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}

// DrawtextFilter emits one drawtext stage per line, horizontally centered,
// positioned at the block's vertical offset. yOffset shifts the whole block
// (used when the caption canvas sits centered inside a taller video canvas).
func (r *Renderer) DrawtextFilter(l Layout, textColor string, yOffset float64) string {
	stages := make([]string, 0, len(l.Lines))
	for i, line := range l.Lines {
		y := yOffset + l.StartY + float64(i)*l.LineHeight
		stage := fmt.Sprintf("drawtext=text='%s':fontsize=%d:fontcolor=%s:x=(w-text_w)/2:y=%d",
			escapeDrawtext(line), l.FontSize, textColor, int(y))
		if r.fontPath != "" {
			stage += fmt.Sprintf(":fontfile='%s'", escapeDrawtext(r.fontPath))
		}
		stages = append(stages, stage)
	}
	return strings.Join(stages, ",")
}

// escapeDrawtext escapes the characters ffmpeg's drawtext filter treats
// specially inside a quoted text value.
func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\\\\\'")
	s = strings.ReplaceAll(s, ":", "\\:")
	s = strings.ReplaceAll(s, "%", "\\%")
	return s
}
