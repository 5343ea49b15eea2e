package jobs

import "errors"

var (
	ErrJobNotFound         = errors.New("job not found")
	ErrInvalidTransition   = errors.New("invalid job status transition")
	ErrJobNotCancellable   = errors.New("job cannot be cancelled in its current status")
	ErrJobNotCompleted     = errors.New("job is not completed")
	ErrOutputMissing       = errors.New("converted file not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrInvalidUpload       = errors.New("invalid upload")
	ErrInvalidFilter       = errors.New("invalid filter")
	ErrMessageExists       = errors.New("message already queued")
	ErrUnknownQueue        = errors.New("unknown queue")
)
