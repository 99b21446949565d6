package service

import (
	"context"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"ai-minutes-client/internal/apierror"
	"ai-minutes-client/internal/entity"
	"ai-minutes-client/internal/pkg/logger"
	"ai-minutes-client/internal/render"
)

// ExportOptions controls one export invocation.
type ExportOptions struct {
	// BaseName overrides the derived file base name. Blank falls back to
	// "meeting_minutes".
	BaseName            string
	IncludeHeader       bool
	IncludeMetadataDate bool
	OutputDir           string
}

type IExportService interface {
	DefaultBaseName(title string) string
	// Export writes <base>.pdf under OutputDir and returns the written
	// path. Only one export may run at a time; a second invocation while
	// one is in flight fails with an export error. Export never mutates
	// document state.
	Export(ctx context.Context, doc *entity.Document, opts ExportOptions) (string, error)
	InFlight() bool
}

type exportService struct {
	renderer *render.Renderer
	log      logger.ILogger
	inFlight atomic.Bool
}

func NewExportService(renderer *render.Renderer, log logger.ILogger) IExportService {
	return &exportService{renderer: renderer, log: log}
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// DefaultBaseName derives the file base name from the title: every
// character outside [a-z0-9] becomes an underscore, the result is
// lowercased, and the "_minutes" suffix is appended. Deterministic, so
// re-deriving from the same title always yields the same name.
func (s *exportService) DefaultBaseName(title string) string {
	return strings.ToLower(nonAlnum.ReplaceAllString(title, "_")) + "_minutes"
}

func (s *exportService) InFlight() bool {
	return s.inFlight.Load()
}

func (s *exportService) Export(ctx context.Context, doc *entity.Document, opts ExportOptions) (string, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return "", apierror.NewExport("an export is already in progress", nil)
	}
	defer s.inFlight.Store(false)

	if err := ctx.Err(); err != nil {
		return "", apierror.NewExport("export cancelled", err)
	}

	base := strings.TrimSpace(opts.BaseName)
	if base == "" {
		base = "meeting_minutes"
	}

	content, err := s.renderer.Document(doc)
	if err != nil {
		return "", apierror.NewExport("failed to render document content", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if opts.IncludeHeader {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}
	if opts.IncludeMetadataDate {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, 6, tr("Generated on "+doc.CreatedAt.Format("January 2, 2006")), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(6)
	}

	pdf.SetFont("Helvetica", "", 12)
	writer := pdf.HTMLBasicNew()
	writer.Write(6, tr(flattenHTML(content)))

	if pdf.Err() {
		return "", apierror.NewExport("failed to lay out document", pdf.Error())
	}

	outPath := filepath.Join(opts.OutputDir, base+".pdf")
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", apierror.NewExport("failed to create export directory", err)
		}
	}

	// Write to a temp file first so a failed export never clobbers an
	// earlier one.
	tmpPath := outPath + "." + uuid.NewString()[:8] + ".tmp"
	if err := pdf.OutputFileAndClose(tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", apierror.NewExport("failed to write PDF", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return "", apierror.NewExport("failed to write PDF", err)
	}

	s.log.Info("export", "document exported", map[string]interface{}{"id": doc.Id, "path": outPath})
	return outPath, nil
}

var (
	headingOpen  = regexp.MustCompile(`<h[1-6][^>]*>`)
	headingClose = regexp.MustCompile(`</h[1-6]>`)
	blockClose   = regexp.MustCompile(`</(?:p|ul|ol|pre|blockquote|table|tr)>`)
	stripTags    = regexp.MustCompile(`</?(?:p|ul|ol|pre|blockquote|code|table|thead|tbody|tr|th|td|span|img)[^>]*>`)
)

// flattenHTML reduces rendered markdown to the tag subset the PDF writer
// understands (b, i, u, a, br, center), turning block boundaries into line
// breaks and list items into bullets.
func flattenHTML(in string) string {
	out := strings.ReplaceAll(in, "\n", "")
	out = headingOpen.ReplaceAllString(out, "<br><b>")
	out = headingClose.ReplaceAllString(out, "</b><br>")
	out = blockClose.ReplaceAllString(out, "<br>")
	out = strings.ReplaceAll(out, "<li>", "<br>  • ")
	out = strings.ReplaceAll(out, "</li>", "")
	out = strings.ReplaceAll(out, "<strong>", "<b>")
	out = strings.ReplaceAll(out, "</strong>", "</b>")
	out = strings.ReplaceAll(out, "<em>", "<i>")
	out = strings.ReplaceAll(out, "</em>", "</i>")
	out = strings.ReplaceAll(out, "<hr>", "<br>")
	out = stripTags.ReplaceAllString(out, "")

	// Protect the kept markup, then decode entities goldmark escaped.
	for _, tag := range []string{"<b>", "</b>", "<i>", "</i>", "<u>", "</u>", "<br>", "<center>", "</center>"} {
		placeholder := "\x00" + strings.Trim(tag, "<>") + "\x00"
		out = strings.ReplaceAll(out, tag, placeholder)
	}
	out = html.UnescapeString(out)
	for _, tag := range []string{"<b>", "</b>", "<i>", "</i>", "<u>", "</u>", "<br>", "<center>", "</center>"} {
		placeholder := "\x00" + strings.Trim(tag, "<>") + "\x00"
		out = strings.ReplaceAll(out, placeholder, tag)
	}
	return out
}
