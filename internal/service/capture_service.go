package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var ErrPermissionDenied = errors.New("capture permission denied")

// ImageHandle points at a captured image on local disk.
type ImageHandle struct {
	Path        string
	ContentType string
	Size        int64
	owned       bool
}

// Close removes the underlying file when the handle created it.
func (h *ImageHandle) Close() error {
	if h == nil || !h.owned {
		return nil
	}
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Capturer obtains one image from a source. A nil handle with a nil error
// means the user cancelled; ErrPermissionDenied means the source refused.
type Capturer interface {
	Capture(ctx context.Context) (*ImageHandle, error)
}

// UploadCapturer captures the image sent in a multipart request.
type UploadCapturer struct {
	header *multipart.FileHeader
	dir    string
	logger *zap.Logger
}

func NewUploadCapturer(header *multipart.FileHeader, dir string, logger *zap.Logger) *UploadCapturer {
	return &UploadCapturer{
		header: header,
		dir:    dir,
		logger: logger,
	}
}

func (c *UploadCapturer) Capture(ctx context.Context) (*ImageHandle, error) {
	if c.header == nil || c.header.Size == 0 {
		return nil, nil
	}

	src, err := c.header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	dst, err := os.CreateTemp(c.dir, "scan-*"+filepath.Ext(c.header.Filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst.Name())
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	mtype, err := mimetype.DetectFile(dst.Name())
	if err != nil {
		os.Remove(dst.Name())
		return nil, fmt.Errorf("failed to detect content type: %w", err)
	}

	c.logger.Debug("Upload captured",
		zap.String("file", c.header.Filename),
		zap.String("content_type", mtype.String()),
		zap.Int64("size", size),
	)

	return &ImageHandle{
		Path:        dst.Name(),
		ContentType: mtype.String(),
		Size:        size,
		owned:       true,
	}, nil
}

// FileCapturer captures an image that already exists on local disk.
type FileCapturer struct {
	path   string
	logger *zap.Logger
}

func NewFileCapturer(path string, logger *zap.Logger) *FileCapturer {
	return &FileCapturer{
		path:   path,
		logger: logger,
	}
}

func (c *FileCapturer) Capture(ctx context.Context) (*ImageHandle, error) {
	if c.path == "" {
		return nil, nil
	}

	f, err := os.Open(c.path)
	switch {
	case os.IsNotExist(err):
		c.logger.Info("Capture source missing, treating as cancelled", zap.String("path", c.path))
		return nil, nil
	case os.IsPermission(err):
		return nil, ErrPermissionDenied
	case err != nil:
		return nil, fmt.Errorf("failed to open %s: %w", c.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", c.path, err)
	}
	if info.Size() == 0 {
		return nil, nil
	}

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to detect content type: %w", err)
	}

	return &ImageHandle{
		Path:        c.path,
		ContentType: mtype.String(),
		Size:        info.Size(),
	}, nil
}
