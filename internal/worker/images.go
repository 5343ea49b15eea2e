package worker

import (
	"context"
	"path/filepath"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pkg/errors"

	"github.com/amankumarsingh77/doc-converter/internal/models"
)

// ImageToPDFConverter wraps a JPEG or PNG into a single page PDF.
//
// pdfcpu takes no context, so the import runs in its own goroutine and
// Convert returns as soon as ctx is done. An abandoned import keeps running
// until pdfcpu finishes writing into the job's work directory.
type ImageToPDFConverter struct {
	importImages func(images []string, outFile string) error
}

func NewImageToPDFConverter() *ImageToPDFConverter {
	return &ImageToPDFConverter{
		importImages: func(images []string, outFile string) error {
			return pdfapi.ImportImagesFile(images, outFile, nil, nil)
		},
	}
}

func (c *ImageToPDFConverter) Convert(ctx context.Context, inputPath, outDir string, conversionType models.ConversionType) (string, error) {
	if conversionType != models.JPGToPDF && conversionType != models.PNGToPDF {
		return "", errors.Errorf("image importer cannot handle %s", conversionType)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outDir, base+".pdf")

	done := make(chan error, 1)
	go func() {
		done <- c.importImages([]string{inputPath}, outputPath)
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			return "", errors.Wrap(err, "image to PDF failed")
		}
	}

	pages, err := pdfapi.PageCountFile(outputPath)
	if err != nil {
		return "", errors.Wrap(err, "generated PDF is unreadable")
	}
	if pages != 1 {
		return "", errors.Errorf("generated PDF has %d pages, expected 1", pages)
	}
	return outputPath, nil
}
