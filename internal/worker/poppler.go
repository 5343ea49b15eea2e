package worker

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/amankumarsingh77/doc-converter/internal/models"
)

// PopplerConverter rasterises PDF pages with pdftoppm. A single page becomes
// one image, several pages are bundled into a zip of page_{n} entries.
type PopplerConverter struct {
	binary string
	dpi    int
}

func NewPopplerConverter(binary string, dpi int) *PopplerConverter {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &PopplerConverter{binary: binary, dpi: dpi}
}

func (p *PopplerConverter) Convert(ctx context.Context, inputPath, outDir string, conversionType models.ConversionType) (string, error) {
	var format, ext string
	switch conversionType {
	case models.PDFToJPG:
		format, ext = "-jpeg", "jpg"
	case models.PDFToPNG:
		format, ext = "-png", "png"
	default:
		return "", errors.Errorf("pdftoppm cannot handle %s", conversionType)
	}

	pagesDir := filepath.Join(outDir, "pages")
	if err := os.MkdirAll(pagesDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create pages directory")
	}

	cmd := toolCommand(ctx, p.binary, "-r", strconv.Itoa(p.dpi), format, inputPath, filepath.Join(pagesDir, "page"))
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Errorf("pdftoppm failed: %v, output: %s", err, strings.TrimSpace(string(output)))
	}

	pages, err := collectPages(pagesDir, ext)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", errors.New("pdftoppm produced no pages")
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	if len(pages) == 1 {
		outputPath := filepath.Join(outDir, base+"."+ext)
		if err := os.Rename(pages[0], outputPath); err != nil {
			return "", errors.Wrap(err, "failed to move page image")
		}
		return outputPath, nil
	}

	outputPath := filepath.Join(outDir, base+".zip")
	if err := zipPages(outputPath, pages, ext); err != nil {
		return "", err
	}
	return outputPath, nil
}

// collectPages returns the rendered page files ordered by page number.
// pdftoppm zero-pads the number to the width of the page count.
func collectPages(dir, ext string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page-*."+ext))
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		return pageNumber(matches[i]) < pageNumber(matches[j])
	})
	return matches, nil
}

func pageNumber(path string) int {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	n, err := strconv.Atoi(name[strings.LastIndex(name, "-")+1:])
	if err != nil {
		return 0
	}
	return n
}

func zipPages(outputPath string, pages []string, ext string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return errors.Wrap(err, "failed to create zip file")
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for i, page := range pages {
		if err := addZipEntry(zw, fmt.Sprintf("page_%d.%s", i+1, ext), page); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "failed to finalize zip file")
	}
	return nil
}

func addZipEntry(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open page %s", name)
	}
	defer f.Close()

	entry, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "failed to add %s to zip", name)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return errors.Wrapf(err, "failed to write %s to zip", name)
	}
	return nil
}
