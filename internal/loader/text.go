package loader

import (
	"context"
	"unicode/utf8"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

// textLoader handles plain text and Markdown buffers.
type textLoader struct{}

func (textLoader) Load(ctx context.Context, data []byte, filename string) (string, error) {
	if !utf8.Valid(data) {
		return "", domain.WrapErrorf(domain.ErrLoaderFailure, "file %s is not valid UTF-8", filename)
	}
	return string(data), nil
}
