package models

// FileUploadInput is what the delivery layer hands to the upload usecase.
type FileUploadInput struct {
	FileName       string `validate:"required,lte=255"`
	Content        []byte `validate:"-"`
	ConversionType string `validate:"omitempty,lte=32"`
	ClientIP       string
	UserAgent      string
	SessionID      string
}

type UploadResult struct {
	JobID          string         `json:"job_id"`
	FileName       string         `json:"filename"`
	ConversionType ConversionType `json:"conversion_type"`
	Status         JobStatus      `json:"status"`
	Message        string         `json:"message"`
}

type RetryResult struct {
	Retried       int `json:"retried"`
	Failed        int `json:"failed"`
	TotalUploaded int `json:"total_uploaded"`
}

type CleanupResult struct {
	CleanedJobs       int `json:"cleaned_jobs"`
	ExpiryHours       int `json:"expiry_hours"`
	FailedExpiryHours int `json:"failed_expiry_hours"`
}

type HealthReport struct {
	Healthy    bool       `json:"-"`
	Database   string     `json:"database"`
	Redis      string     `json:"redis"`
	Storage    string     `json:"storage"`
	QueueStats QueueStats `json:"queue_stats,omitempty"`
}
