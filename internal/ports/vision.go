package ports

import (
	"context"
	"errors"
)

// ErrVisionUnavailable marks vision-model transport failures (timeout,
// connection refused) as a distinct user-visible category: no defect is
// recorded for a failed vision call.
var ErrVisionUnavailable = errors.New("vision model unavailable")

type VisionPrediction struct {
	Prediction string
	Confidence float64
}

type VisionClient interface {
	Predict(ctx context.Context, imagePath string) (VisionPrediction, error)
}
