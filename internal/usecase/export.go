package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MarketThermo/internal/domain/models"
	domsvc "MarketThermo/internal/domain/service"
	"MarketThermo/internal/services/decision"
	"MarketThermo/pkg/util"
)

// ErrUnsupportedFormat is returned for an export format with no renderer.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ExportResult is a rendered report ready to be served as an attachment.
type ExportResult struct {
	Body        []byte
	ContentType string
	Filename    string
}

type ExportUseCase struct {
	reports      domsvc.ReportAssembler
	renderers    map[string]domsvc.ReportRenderer
	defaultScale int
}

// NewExportUseCase indexes renderers by their file extension.
func NewExportUseCase(reports domsvc.ReportAssembler, defaultScale int, renderers ...domsvc.ReportRenderer) *ExportUseCase {
	uc := &ExportUseCase{
		reports:      reports,
		renderers:    make(map[string]domsvc.ReportRenderer, len(renderers)),
		defaultScale: util.Clamp(defaultScale, 1, 4),
	}
	for _, r := range renderers {
		uc.renderers[r.Extension()] = r
	}
	return uc
}

// Export assembles the report for day and renders it. A zero scale uses the
// configured default.
func (uc *ExportUseCase) Export(ctx context.Context, day time.Time, lang models.Language, format string, scale int, narrative bool) (*ExportResult, error) {
	r, ok := uc.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if scale == 0 {
		scale = uc.defaultScale
	}

	report, err := uc.reports.Compose(ctx, day, lang, narrative)
	if err != nil {
		return nil, err
	}

	body, err := r.Render(report, scale)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return &ExportResult{
		Body:        body,
		ContentType: r.ContentType(),
		Filename:    decision.ExportFilename(report.Date, r.Extension()),
	}, nil
}
