// Package background resolves a job's background request into a concrete
// render layer: a flat color, a still image, or a looping video clip.
// Remote sources are downloaded to managed temp files and probed before the
// first segment renders, so every later render step works from local media
// with known properties.
package background

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/shortforge/shortforge/internal/models"
	"github.com/shortforge/shortforge/internal/tempres"
)

// Prober reads media properties from a local file.
type Prober interface {
	Duration(ctx context.Context, filePath string) (float64, error)
	Dimensions(ctx context.Context, filePath string) (width, height int, err error)
}

// TempFiler allocates temp file paths inside the managed workspace.
type TempFiler interface {
	TempFile(name string) string
}

// Layer is a fully resolved background, ready for segment rendering.
type Layer struct {
	Variant models.BackgroundVariant

	// Color holds the fallback/base canvas color for every variant.
	Color string

	ImagePath string
	Stretch   bool

	VideoPath        string
	VideoDurationSec float64
	SrcW, SrcH       int
}

// Resolver downloads and probes background sources.
type Resolver struct {
	client *http.Client
	probe  Prober
	files  TempFiler
}

func NewResolver(probe Prober, files TempFiler) *Resolver {
	return &Resolver{
		client: &http.Client{Timeout: 120 * time.Second},
		probe:  probe,
		files:  files,
	}
}

// Resolve turns the requested background into a Layer. Any failure while
// fetching or probing a source degrades the layer to the flat canvas color
// and is logged; background trouble never fails the whole job.
func (r *Resolver) Resolve(ctx context.Context, spec models.BackgroundSpec, canvasColor string, reg *tempres.Manager) Layer {
	colorLayer := Layer{Variant: models.BackgroundColor, Color: canvasColor}

	switch spec.Variant {
	case models.BackgroundImage:
		local, err := r.localize(ctx, spec.Source, "bg_image", reg)
		if err != nil {
			log.Printf("[background] image source unusable (%v), falling back to color", err)
			return colorLayer
		}
		return Layer{
			Variant:   models.BackgroundImage,
			Color:     canvasColor,
			ImagePath: local,
			Stretch:   spec.Stretch,
		}

	case models.BackgroundVideo:
		local, err := r.localize(ctx, spec.Source, "bg_video", reg)
		if err != nil {
			log.Printf("[background] video source unusable (%v), falling back to color", err)
			return colorLayer
		}
		dur, err := r.probe.Duration(ctx, local)
		if err != nil || dur <= 0 {
			log.Printf("[background] could not probe video duration (%v), falling back to color", err)
			return colorLayer
		}
		w, h, err := r.probe.Dimensions(ctx, local)
		if err != nil || w <= 0 || h <= 0 {
			log.Printf("[background] could not probe video dimensions (%v), falling back to color", err)
			return colorLayer
		}
		return Layer{
			Variant:          models.BackgroundVideo,
			Color:            canvasColor,
			VideoPath:        local,
			VideoDurationSec: dur,
			SrcW:             w,
			SrcH:             h,
		}

	default:
		// BackgroundNone and BackgroundColor both render a flat canvas.
		return colorLayer
	}
}

// FetchAsset localizes an arbitrary media asset (such as the outro logo)
// with the same download-and-register behavior used for background sources.
func (r *Resolver) FetchAsset(ctx context.Context, source, label string, reg *tempres.Manager) (string, error) {
	return r.localize(ctx, source, label, reg)
}

// localize returns a local path for the source, downloading remote URLs into
// a temp file registered for cleanup. Local paths are used in place.
func (r *Resolver) localize(ctx context.Context, source, label string, reg *tempres.Manager) (string, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		if _, err := os.Stat(source); err != nil {
			return "", fmt.Errorf("local source %s: %w", source, err)
		}
		return source, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", source, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	log.Printf("[background] downloading %s source: %s", label, source)
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	ext := path.Ext(source)
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	local := r.files.TempFile(label + ext)

	out, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	reg.RegisterFile(local)

	n, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err != nil {
		return "", fmt.Errorf("failed to write download: %w", err)
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to finish download: %w", closeErr)
	}
	if n == 0 {
		return "", fmt.Errorf("download was empty")
	}
	return local, nil
}

// CoverGeometry is a scale-then-center-crop fit that fills the destination
// canvas completely while preserving the source aspect ratio.
type CoverGeometry struct {
	ScaleW, ScaleH int
	CropX, CropY   int
}

// Cover computes the geometry that scales src to fully cover dst and crops
// the overflow symmetrically.
func Cover(srcW, srcH, dstW, dstH int) CoverGeometry {
	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(dstW) / float64(dstH)

	var g CoverGeometry
	if srcAspect > dstAspect {
		// Source is wider: match heights, crop left and right.
		g.ScaleH = dstH
		g.ScaleW = int(math.Round(float64(dstH) * srcAspect))
		g.CropX = (g.ScaleW - dstW) / 2
	} else {
		// Source is taller or equal: match widths, crop top and bottom.
		g.ScaleW = dstW
		g.ScaleH = int(math.Round(float64(dstW) / srcAspect))
		g.CropY = (g.ScaleH - dstH) / 2
	}
	return g
}

// CoverFilter renders the geometry as an ffmpeg scale+crop filter pair.
func CoverFilter(srcW, srcH, dstW, dstH int) string {
	g := Cover(srcW, srcH, dstW, dstH)
	return fmt.Sprintf("scale=%d:%d,crop=%d:%d:%d:%d",
		g.ScaleW, g.ScaleH, dstW, dstH, g.CropX, g.CropY)
}

// ImageFilter fits a still image onto the canvas. Stretch fills the canvas
// ignoring aspect ratio; otherwise the image is letterboxed onto pads of the
// canvas color.
func ImageFilter(dstW, dstH int, stretch bool, padColor string) string {
	if stretch {
		return fmt.Sprintf("scale=%d:%d", dstW, dstH)
	}
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=%s",
		dstW, dstH, dstW, dstH, padColor)
}
