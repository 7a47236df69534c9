package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

// docxLoader reads the WordprocessingML main document part of a .docx
// archive. Paragraphs, hyperlink runs and tables are flattened to text.
type docxLoader struct{}

func (docxLoader) Load(ctx context.Context, data []byte, filename string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrLoaderFailure, err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", domain.WrapError(domain.ErrLoaderFailure, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", domain.WrapError(domain.ErrLoaderFailure, err)
		}
		return parseDocumentXML(content), nil
	}
	return "", domain.WrapErrorf(domain.ErrLoaderFailure, "document.xml not found in %s", filename)
}

type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
	Tables     []docxTable     `xml:"tbl"`
}

type docxParagraph struct {
	Runs       []docxRun       `xml:"r"`
	Hyperlinks []docxHyperlink `xml:"hyperlink"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
	Tab  []struct{} `xml:"tab"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

type docxHyperlink struct {
	Runs []docxRun `xml:"r"`
}

type docxTable struct {
	Rows []docxTableRow `xml:"tr"`
}

type docxTableRow struct {
	Cells []docxTableCell `xml:"tc"`
}

type docxTableCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

func parseDocumentXML(content []byte) string {
	var doc docxDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return extractTextFallback(content)
	}

	var parts []string
	for _, para := range doc.Body.Paragraphs {
		if text := paragraphText(&para); text != "" {
			parts = append(parts, text)
		}
	}
	for _, tbl := range doc.Body.Tables {
		if text := tableText(&tbl); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func paragraphText(para *docxParagraph) string {
	var parts []string
	appendRuns := func(runs []docxRun) {
		for _, run := range runs {
			for _, text := range run.Text {
				if text.Content != "" {
					parts = append(parts, text.Content)
				}
			}
			for range run.Tab {
				parts = append(parts, "\t")
			}
		}
	}
	appendRuns(para.Runs)
	for _, link := range para.Hyperlinks {
		appendRuns(link.Runs)
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

func tableText(tbl *docxTable) string {
	var rows []string
	for _, row := range tbl.Rows {
		var cells []string
		for _, cell := range row.Cells {
			var cellText []string
			for _, para := range cell.Paragraphs {
				if text := paragraphText(&para); text != "" {
					cellText = append(cellText, text)
				}
			}
			cells = append(cells, strings.Join(cellText, " "))
		}
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
	}
	return strings.Join(rows, "\n")
}

var docxTextRegex = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// extractTextFallback recovers run text with a regex when the XML does not
// parse cleanly.
func extractTextFallback(content []byte) string {
	matches := docxTextRegex.FindAllSubmatch(content, -1)
	var parts []string
	for _, match := range matches {
		if len(match) > 1 && len(match[1]) > 0 {
			parts = append(parts, string(match[1]))
		}
	}
	return strings.Join(parts, " ")
}
