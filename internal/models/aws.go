package models

import "io"

type UploadInput struct {
	File        io.Reader `json:"-"`
	Key         string    `json:"key" validate:"required,lte=1024"`
	ContentType string    `json:"content_type" validate:"required"`
	Size        int64     `json:"size" validate:"gte=0"`
}
