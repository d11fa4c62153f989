package reporting

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/pkg/civil"
)

// DiseaseReport is the consolidated trend list with its statistics.
// Degraded is set when the store could not be read and the report is empty.
type DiseaseReport struct {
	Trends   []DiseaseTrend `json:"trends"`
	Summary  TrendSummary   `json:"summary"`
	Degraded bool           `json:"degraded,omitempty"`
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) DiseaseTrends(ctx context.Context) *DiseaseReport {
	rows, err := s.repo.DiseaseTrendRaw(ctx)
	degraded := false
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("disease trend report degraded")
		rows, degraded = nil, true
	}
	trends := ConsolidateDiseaseTrends(rows)
	return &DiseaseReport{Trends: trends, Summary: Summarize(trends), Degraded: degraded}
}

// Distribution lays the trends out as pie slices with SVG paths for a
// circle of radius r centred on (cx, cy).
func (s *Service) Distribution(ctx context.Context, cx, cy, r float64) ([]Arc, bool) {
	report := s.DiseaseTrends(ctx)
	arcs := DistributionArcs(report.Trends)
	for i := range arcs {
		arcs[i].Path = arcs[i].SVGPath(cx, cy, r)
	}
	return arcs, report.Degraded
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	return s.repo.Dashboard(ctx, civil.DateOf(s.now()))
}

func (s *Service) EvaluateMeasure(ctx context.Context, id string) (*MeasureReport, error) {
	m := FindMeasure(id)
	if m == nil {
		return nil, apperr.NotFound("measure")
	}
	results, err := s.repo.Evaluate(ctx, m)
	if err != nil {
		return nil, err
	}
	return &MeasureReport{
		MeasureID:   m.ID,
		MeasureName: m.Name,
		GeneratedAt: s.now().UTC(),
		Results:     results,
	}, nil
}
