package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/amankumarsingh77/doc-converter/internal/models"
)

// LibreOfficeConverter shells out to a headless soffice. Each call gets its
// own profile directory so concurrent conversions do not share a lock.
type LibreOfficeConverter struct {
	binary string
}

func NewLibreOfficeConverter(binary string) *LibreOfficeConverter {
	if binary == "" {
		binary = "soffice"
	}
	return &LibreOfficeConverter{binary: binary}
}

func (l *LibreOfficeConverter) Convert(ctx context.Context, inputPath, outDir string, conversionType models.ConversionType) (string, error) {
	args, err := libreOfficeArgs(inputPath, outDir, conversionType)
	if err != nil {
		return "", err
	}

	cmd := toolCommand(ctx, l.binary, args...)
	cmd.Env = append(os.Environ(), "HOME="+outDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Errorf("LibreOffice conversion failed: %v, output: %s", err, strings.TrimSpace(string(output)))
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outDir, base+"."+conversionType.OutputExt())
	if _, err := os.Stat(outputPath); err != nil {
		return "", errors.Errorf("LibreOffice produced no %s output: %s", conversionType.OutputExt(), strings.TrimSpace(string(output)))
	}
	return outputPath, nil
}

func libreOfficeArgs(inputPath, outDir string, conversionType models.ConversionType) ([]string, error) {
	profile := filepath.Join(outDir, ".lo-profile")
	args := []string{
		"-env:UserInstallation=file://" + filepath.ToSlash(profile),
		"--headless",
		"--norestore",
	}
	switch conversionType {
	case models.DocxToPDF:
		args = append(args, "--convert-to", "pdf")
	case models.PDFToDocx:
		args = append(args, "--infilter=writer_pdf_import", "--convert-to", "docx:MS Word 2007 XML")
	default:
		return nil, errors.Errorf("LibreOffice cannot handle %s", conversionType)
	}
	return append(args, "--outdir", outDir, inputPath), nil
}
