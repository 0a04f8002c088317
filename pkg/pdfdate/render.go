package pdfdate

import (
	"fmt"
	"image/png"
	"os"

	"github.com/gen2brain/go-fitz"
)

// RenderFirstPage rasterizes page 1 of the PDF to a PNG. The orchestrator
// calls it when date extraction misses so an operator can eyeball where
// the configured region landed and recalibrate it with the bbox tool.
func RenderFirstPage(pdfPath, outPath string) error {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return fmt.Errorf("open pdf for render: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() < 1 {
		return fmt.Errorf("pdf has no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		return fmt.Errorf("render page 1: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create render output: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		return fmt.Errorf("encode render: %w", err)
	}
	return nil
}
