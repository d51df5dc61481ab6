// Package extract holds the collaborator-side collectors: everything that
// can hand the pipeline a batch of raw price observations. All sources are
// interchangeable producers behind the Collector interface; source-specific
// field names survive only until normalization.
package extract

import (
	"context"

	"goldwarehouse/internal/model"
)

// Collector produces one batch of raw price records per invocation.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]model.RawPriceRecord, error)
}
