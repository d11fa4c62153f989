package reporting

import (
	"context"

	"github.com/clinic/clinic/pkg/civil"
)

type Repository interface {
	// DiseaseTrendRaw groups diagnoses by their exact text.
	DiseaseTrendRaw(ctx context.Context) ([]RawDiseaseRow, error)
	Dashboard(ctx context.Context, today civil.Date) (*Dashboard, error)
	Evaluate(ctx context.Context, m *MeasureDefinition) ([]map[string]interface{}, error)
}
