// Package loader extracts plain text from uploaded document buffers.
package loader

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

// Loader extracts UTF-8 text from a file buffer. Implementations must not
// retain references to the buffer after returning, and must clean up any
// temporary files on every exit path.
type Loader interface {
	Load(ctx context.Context, data []byte, filename string) (string, error)
}

var loaders = map[string]Loader{
	".pdf":      pdfLoader{},
	".docx":     docxLoader{},
	".txt":      textLoader{},
	".md":       textLoader{},
	".markdown": textLoader{},
}

// SupportedExtension reports whether the filename maps to a known loader.
func SupportedExtension(filename string) bool {
	_, ok := loaders[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract dispatches on the file extension, loads the buffer and returns the
// normalized flattened text.
func Extract(ctx context.Context, data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	l, ok := loaders[ext]
	if !ok {
		return "", domain.WrapErrorf(domain.ErrUnsupportedFormat, "unsupported document format %q", ext)
	}
	if len(data) == 0 {
		return "", domain.ErrEmptyContent
	}

	raw, err := l.Load(ctx, data, filename)
	if err != nil {
		return "", err
	}

	text := Normalize(raw)
	if text == "" {
		return "", domain.ErrEmptyContent
	}
	return text, nil
}
