package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/signintech/gopdf"
	"go.uber.org/zap"

	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/diagnosis"
)

// Service persists finalized diagnosis reports and renders them as PDF
// documents for download.
type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Store saves the report. Failures are logged and swallowed so that report
// persistence can never break the chat reply.
func (s *Service) Store(ctx context.Context, r diagnosis.Report) {
	if err := s.repo.Save(ctx, r); err != nil {
		s.log.Error("failed to persist report",
			zap.String("session", r.SessionID), zap.Error(err))
	}
}

// Latest fetches the most recent report for a session.
func (s *Service) Latest(ctx context.Context, sessionID string) (*diagnosis.Report, error) {
	return s.repo.Latest(ctx, sessionID)
}

// fontPaths lists common DejaVuSans locations, Alpine first.
var fontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// RenderPDF lays out the report as an A4 PDF.
func (s *Service) RenderPDF(r diagnosis.Report) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load font for PDF, ensure ttf-dejavu is installed: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Diagnosis Report")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", r.CreatedAt.Format("02.01.2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Session: %s", r.SessionID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Diagnosis: %s (ICD-10: %s, Confidence: %.0f%%)",
		r.Disease, r.ICD10, r.Confidence*100))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	for _, paragraph := range strings.Split(plainText(r.Body), "\n") {
		if paragraph == "" {
			pdf.Br(8)
			continue
		}
		lines, _ := pdf.SplitText(paragraph, 500)
		for _, l := range lines {
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
	}

	pdf.SetY(800)
	if err := pdf.SetFont("DejaVu", "", 9); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Generated %s", time.Now().Format(time.RFC1123)))

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// plainText strips the markdown emphasis and emoji prefixes used in chat
// replies; the PDF carries its own layout.
func plainText(body string) string {
	body = strings.ReplaceAll(body, "**", "")
	body = strings.ReplaceAll(body, "📋 ", "")
	body = strings.ReplaceAll(body, "⚠️ ", "")
	return body
}
