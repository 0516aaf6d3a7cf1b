package solver

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sniperleonid/Calc-sub001/internal/solver"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
