package models

import (
	"path/filepath"
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusUploaded   JobStatus = "uploaded"
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusUploaded:   {JobStatusPending, JobStatusCancelled},
	JobStatusPending:    {JobStatusProcessing, JobStatusCancelled},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed},
}

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusUploaded, JobStatusPending, JobStatusProcessing,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ConversionType string

const (
	DocxToPDF ConversionType = "docx_to_pdf"
	PDFToDocx ConversionType = "pdf_to_docx"
	PDFToJPG  ConversionType = "pdf_to_jpg"
	PDFToPNG  ConversionType = "pdf_to_png"
	JPGToPDF  ConversionType = "jpg_to_pdf"
	PNGToPDF  ConversionType = "png_to_pdf"
)

const (
	QueueDocxPDF  = "queue:docx_pdf"
	QueuePDFDocx  = "queue:pdf_docx"
	QueuePDFImage = "queue:pdf_image"
	QueueImagePDF = "queue:image_pdf"
)

// AllQueues lists every dispatch queue in a stable order.
var AllQueues = []string{QueueDocxPDF, QueuePDFDocx, QueuePDFImage, QueueImagePDF}

const (
	contentTypePDF  = "application/pdf"
	contentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	contentTypeJPEG = "image/jpeg"
	contentTypePNG  = "image/png"
	contentTypeZip  = "application/zip"
)

type conversionInfo struct {
	queue       string
	ext         string
	contentType string
}

var conversions = map[ConversionType]conversionInfo{
	DocxToPDF: {QueueDocxPDF, "pdf", contentTypePDF},
	PDFToDocx: {QueuePDFDocx, "docx", contentTypeDocx},
	PDFToJPG:  {QueuePDFImage, "jpg", contentTypeJPEG},
	PDFToPNG:  {QueuePDFImage, "png", contentTypePNG},
	JPGToPDF:  {QueueImagePDF, "pdf", contentTypePDF},
	PNGToPDF:  {QueueImagePDF, "pdf", contentTypePDF},
}

func (t ConversionType) IsValid() bool {
	_, ok := conversions[t]
	return ok
}

func (t ConversionType) Queue() string {
	return conversions[t].queue
}

// OutputExt is the extension of a single-file result, without the dot.
func (t ConversionType) OutputExt() string {
	return conversions[t].ext
}

// InferConversionType picks the default conversion for a filename extension.
func InferConversionType(filename string) (ConversionType, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return DocxToPDF, true
	case ".pdf":
		return PDFToDocx, true
	case ".jpg", ".jpeg":
		return JPGToPDF, true
	case ".png":
		return PNGToPDF, true
	}
	return "", false
}

// UploadKey and OutputKey build the object store paths for a job.
func UploadKey(jobID, filename string) string {
	return "uploads/" + jobID + "_" + filename
}

func OutputKey(jobID, ext string) string {
	return "converted/" + jobID + "." + ext
}

type Job struct {
	ID              string         `json:"id" db:"id"`
	FileName        string         `json:"filename" db:"filename"`
	ConversionType  ConversionType `json:"conversion_type" db:"conversion_type"`
	OriginalSize    int64          `json:"original_size" db:"original_size"`
	Status          JobStatus      `json:"status" db:"status"`
	FilePath        string         `json:"file_path" db:"file_path"`
	OutputPath      string         `json:"output_path,omitempty" db:"output_path"`
	AssignedService string         `json:"assigned_service,omitempty" db:"assigned_service"`
	WorkerID        string         `json:"worker_id,omitempty" db:"worker_id"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	StartedAt       *time.Time     `json:"started_at" db:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at" db:"completed_at"`
	ErrorMessage    string         `json:"error_message,omitempty" db:"error_message"`
	RetryCount      int            `json:"retry_count" db:"retry_count"`
	MaxRetries      int            `json:"max_retries" db:"max_retries"`
	ClientIP        string         `json:"-" db:"client_ip"`
	UserAgent       string         `json:"-" db:"user_agent"`
	SessionID       string         `json:"session_id,omitempty" db:"session_id"`
}

// DownloadInfo describes how a completed output is served to the client.
type DownloadInfo struct {
	FileName    string
	ContentType string
}

func (j *Job) DownloadInfo() DownloadInfo {
	base := strings.TrimSuffix(j.FileName, filepath.Ext(j.FileName))
	if strings.HasSuffix(j.OutputPath, ".zip") {
		return DownloadInfo{FileName: base + "_pages.zip", ContentType: contentTypeZip}
	}
	info := conversions[j.ConversionType]
	return DownloadInfo{FileName: base + "." + info.ext, ContentType: info.contentType}
}

type JobFilter struct {
	Status         JobStatus
	ConversionType ConversionType
	SessionID      string
	Limit          int
	Offset         int
}

type JobList struct {
	Jobs   []*Job `json:"jobs"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}
