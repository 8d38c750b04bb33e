package usecases

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/tripdesk/internal/core/tripcheck"
)

var tracer = otel.Tracer("tripdesk/usecases")

// Policy bundles the dispatch tolerances the services enforce.
type Policy struct {
	StartWindow     tripcheck.Window
	Arrival         tripcheck.ArrivalValidator
	StopOverheadMin float64
}

// DefaultPolicy is used when no configuration overrides the tolerances.
var DefaultPolicy = Policy{
	StartWindow:     tripcheck.DefaultStartWindow,
	Arrival:         tripcheck.DefaultArrivalValidator,
	StopOverheadMin: tripcheck.DefaultStopOverheadMin,
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
