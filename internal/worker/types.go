package worker

import (
	"context"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/models"
)

const (
	FamilyDocxPDF = "docx-pdf"
	FamilyPDFDocx = "pdf-docx"
	FamilyImage   = "image"
)

// Converter turns a local input file into a local output file inside outDir
// and returns the output path.
type Converter interface {
	Convert(ctx context.Context, inputPath, outDir string, conversionType models.ConversionType) (string, error)
}

// Family is one worker deployment: the queues it drains and the converters
// it can run.
type Family struct {
	Name       string
	Service    string
	Queues     []string
	Converters map[models.ConversionType]Converter
}

type Options struct {
	WorkerCount       int
	DequeueTimeout    time.Duration
	ConversionTimeout time.Duration
	ErrorBackoff      time.Duration
	MaxCPUUsage       float64
	CPUCheckInterval  time.Duration
	TempDir           string
}

func (o Options) withDefaults() Options {
	if o.WorkerCount <= 0 {
		o.WorkerCount = 1
	}
	if o.DequeueTimeout <= 0 {
		o.DequeueTimeout = 5 * time.Second
	}
	if o.ConversionTimeout <= 0 {
		o.ConversionTimeout = 60 * time.Second
	}
	if o.ErrorBackoff <= 0 {
		o.ErrorBackoff = time.Second
	}
	if o.CPUCheckInterval <= 0 {
		o.CPUCheckInterval = 10 * time.Second
	}
	return o
}
