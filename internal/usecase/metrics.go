package usecase

// Metrics receives pipeline events. The Prometheus recorder implements it;
// services fall back to a no-op when none is given.
type Metrics interface {
	PageExtracted()
	PrefilterRanked(fallback bool)
	IdentityResolved(records, pairs, clusters int)
	AssemblyAttempt(outcome string)
}

// Assembly attempt outcomes
const (
	OutcomeSuccess         = "success"
	OutcomeValidationError = "validation_error"
	OutcomeGeneratorError  = "generator_error"
)

type noopMetrics struct{}

func (noopMetrics) PageExtracted() {}
func (noopMetrics) PrefilterRanked(bool) {}
func (noopMetrics) IdentityResolved(int, int, int) {}
func (noopMetrics) AssemblyAttempt(string) {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
