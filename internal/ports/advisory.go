package ports

import "context"

// AdvisoryResult is structured maintenance guidance from the external
// text-generation service, already flattened to plain strings.
type AdvisoryResult struct {
	RootCause                 string
	SeverityRaw               string
	ImmediateAction           string
	ResolutionSteps           string
	PreventiveRecommendations string
}

// AdvisoryClient calls the external advisory service. Implementations degrade
// to a fixed fallback result rather than failing: any error returned here is
// substituted with a zero result by the pipeline, never propagated.
type AdvisoryClient interface {
	Analyze(ctx context.Context, defectType string, confidence float64, locationDescription string) (AdvisoryResult, error)
}
