package worker

import (
	"github.com/pkg/errors"

	"github.com/amankumarsingh77/doc-converter/internal/config"
	"github.com/amankumarsingh77/doc-converter/internal/models"
)

// NewFamily builds the worker family named in cfg.Worker.Family.
func NewFamily(cfg *config.Config) (*Family, error) {
	wc := cfg.Worker
	switch wc.Family {
	case FamilyDocxPDF:
		var converter Converter = NewLibreOfficeConverter(wc.LibreOfficePath)
		if wc.GotenbergURL != "" {
			converter = NewGotenbergConverter(wc.GotenbergURL, nil)
		}
		return &Family{
			Name:       FamilyDocxPDF,
			Service:    "docx-pdf-service",
			Queues:     []string{models.QueueDocxPDF},
			Converters: map[models.ConversionType]Converter{models.DocxToPDF: converter},
		}, nil
	case FamilyPDFDocx:
		return &Family{
			Name:       FamilyPDFDocx,
			Service:    "pdf-docx-service",
			Queues:     []string{models.QueuePDFDocx},
			Converters: map[models.ConversionType]Converter{models.PDFToDocx: NewLibreOfficeConverter(wc.LibreOfficePath)},
		}, nil
	case FamilyImage:
		raster := NewPopplerConverter(wc.PdftoppmPath, wc.ImageDPI)
		importer := NewImageToPDFConverter()
		return &Family{
			Name:    FamilyImage,
			Service: "image-service",
			Queues:  []string{models.QueuePDFImage, models.QueueImagePDF},
			Converters: map[models.ConversionType]Converter{
				models.PDFToJPG: raster,
				models.PDFToPNG: raster,
				models.JPGToPDF: importer,
				models.PNGToPDF: importer,
			},
		}, nil
	}
	return nil, errors.Errorf("unknown worker family %q", wc.Family)
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WorkerCount:       cfg.Worker.WorkerCount,
		DequeueTimeout:    cfg.Redis.DequeueTimeout,
		ConversionTimeout: cfg.Worker.ConversionTimeout,
		ErrorBackoff:      cfg.Worker.ErrorBackoff,
		MaxCPUUsage:       cfg.Worker.MaxCPUUsage,
		CPUCheckInterval:  cfg.Worker.CPUCheckInterval,
		TempDir:           cfg.Worker.TempDir,
	}
}
