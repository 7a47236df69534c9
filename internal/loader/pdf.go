package loader

import (
	"bytes"
	"context"
	"strings"

	pdf "github.com/dslipak/pdf"

	"github.com/mentoria-ai/mentoria/pkg/domain"
	"github.com/mentoria-ai/mentoria/pkg/log"
)

type pdfLoader struct{}

func (pdfLoader) Load(ctx context.Context, data []byte, filename string) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrLoaderFailure, err)
	}

	var content strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", domain.WrapError(domain.ErrCancelled, err)
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// Partially extractable documents are still useful.
			log.Warn("pdf page extraction failed", "file", filename, "page", i, "error", err)
			continue
		}
		content.WriteString(text)
		content.WriteString("\n")
	}
	return content.String(), nil
}
