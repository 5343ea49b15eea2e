package models

// MaxPriority bounds the magnitude of QueueMessage.Priority. Values outside
// [-MaxPriority, MaxPriority] are clamped when scored so queue order stays
// exact.
const MaxPriority = 1 << 20

type QueueMessage struct {
	JobID          string                 `json:"job_id"`
	ConversionType ConversionType         `json:"conversion_type"`
	FilePath       string                 `json:"file_path"`
	FileName       string                 `json:"filename"`
	Priority       int                    `json:"priority"`
	RetryCount     int                    `json:"retry_count"`
	Metadata       map[string]interface{} `json:"metadata"`
}

func NewQueueMessage(job *Job, priority int, metadata map[string]interface{}) *QueueMessage {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &QueueMessage{
		JobID:          job.ID,
		ConversionType: job.ConversionType,
		FilePath:       job.FilePath,
		FileName:       job.FileName,
		Priority:       priority,
		RetryCount:     job.RetryCount,
		Metadata:       metadata,
	}
}

type QueueStats map[string]int64
