package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/amankumarsingh77/doc-converter/internal/models"
)

// GotenbergConverter sends office documents to a Gotenberg instance instead
// of running LibreOffice locally.
type GotenbergConverter struct {
	baseURL string
	client  *http.Client
}

func NewGotenbergConverter(baseURL string, client *http.Client) *GotenbergConverter {
	if client == nil {
		// Deadlines come from the request context.
		client = &http.Client{Timeout: 0}
	}
	return &GotenbergConverter{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (g *GotenbergConverter) Convert(ctx context.Context, inputPath, outDir string, conversionType models.ConversionType) (string, error) {
	if conversionType != models.DocxToPDF {
		return "", errors.Errorf("gotenberg cannot handle %s", conversionType)
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open input file")
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", filepath.Base(inputPath))
	if err != nil {
		return "", errors.Wrap(err, "failed to create form file")
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", errors.Wrap(err, "failed to copy file")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close writer")
	}

	url := fmt.Sprintf("%s/forms/libreoffice/convert", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Wrap(err, "gotenberg request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.Errorf("gotenberg returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outDir, base+".pdf")
	out, err := os.Create(outputPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to create output file")
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", errors.Wrap(err, "failed to save converted file")
	}
	return outputPath, nil
}
