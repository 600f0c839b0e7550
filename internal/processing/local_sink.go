package processing

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Sink persists a job's rendered artifacts and returns the keys a
// caller can later use to fetch them. ObjectSink and DiskSink are the
// two implementations: an S3-compatible store, or a local directory
// fallback for deployments with no object store configured.
type Sink interface {
	Store(jobID string, rendered Rendered) (ObjectKeys, error)
}

// DiskSink writes rendered artifacts under a local directory instead
// of an object store, mirroring ObjectSink's date-prefixed key layout
// so the two are interchangeable from the caller's point of view.
type DiskSink struct {
	root string
}

// NewDiskSink creates a sink rooted at dir, creating it if necessary.
func NewDiskSink(dir string) (*DiskSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("processing: creating output directory: %w", err)
	}
	return &DiskSink{root: dir}, nil
}

// Store writes both rendered artifacts to disk and returns their
// paths, relative to root, as the object keys.
func (s *DiskSink) Store(jobID string, rendered Rendered) (ObjectKeys, error) {
	datePrefix := time.Now().UTC().Format("2006/01/02")

	pdfKey := filepath.Join("documents", datePrefix, jobID+".pdf")
	if err := s.writeFile(pdfKey, rendered.PDF); err != nil {
		return ObjectKeys{}, fmt.Errorf("processing: writing pdf: %w", err)
	}

	pngKey := filepath.Join("documents", datePrefix, jobID+".png")
	if err := s.writeFile(pngKey, rendered.PNG); err != nil {
		return ObjectKeys{}, fmt.Errorf("processing: writing png: %w", err)
	}

	return ObjectKeys{PDFKey: pdfKey, PNGKey: pngKey}, nil
}

func (s *DiskSink) writeFile(key string, data []byte) error {
	path := filepath.Join(s.root, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
