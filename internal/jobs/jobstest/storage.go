package jobstest

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/internal/models"
)

type object struct {
	data        []byte
	contentType string
}

// Storage is an in-memory jobs.AWSRepository.
type Storage struct {
	mu      sync.Mutex
	objects map[string]object

	PutErr    error
	PingErr   error
	RemoveErr map[string]error
}

func NewStorage() *Storage {
	return &Storage{objects: make(map[string]object), RemoveErr: make(map[string]error)}
}

func (s *Storage) Set(key string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: append([]byte(nil), data...), contentType: contentType}
}

func (s *Storage) Object(key string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj.data, obj.contentType, ok
}

func (s *Storage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

func (s *Storage) PutObject(_ context.Context, input *models.UploadInput) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	data, err := io.ReadAll(input.File)
	if err != nil {
		return err
	}
	s.Set(input.Key, data, input.ContentType)
	return nil
}

func (s *Storage) GetObject(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, contentType, ok := s.Object(key)
	if !ok {
		return nil, "", jobs.ErrOutputMissing
	}
	return io.NopCloser(bytes.NewReader(data)), contentType, nil
}

func (s *Storage) DownloadFile(_ context.Context, key, path string) error {
	data, _, ok := s.Object(key)
	if !ok {
		return jobs.ErrOutputMissing
	}
	return os.WriteFile(path, data, 0o600)
}

func (s *Storage) UploadFile(ctx context.Context, key, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.PutObject(ctx, &models.UploadInput{File: f, Key: key, ContentType: contentType})
}

func (s *Storage) RemoveObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.RemoveErr[key]; err != nil {
		return err
	}
	delete(s.objects, key)
	return nil
}

func (s *Storage) Ping(context.Context) error {
	return s.PingErr
}
