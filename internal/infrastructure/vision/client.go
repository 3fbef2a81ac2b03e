// Package vision calls the external vision-inference endpoint. Transport
// failures surface as ports.ErrVisionUnavailable: a failed vision call is a
// distinct, user-visible outcome and records no defect.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"railguard/internal/bootstrap/config"
	"railguard/internal/errs"
	"railguard/internal/ports"
)

type Client struct {
	predictURL string
	httpClient *http.Client
}

var _ ports.VisionClient = (*Client)(nil)

func NewClient(cfg config.VisionConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	} else {
		httpClient.Timeout = 30 * time.Second
	}

	return &Client{
		predictURL: cfg.PredictURL,
		httpClient: httpClient,
	}
}

type predictResponse struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

func (c *Client) Predict(ctx context.Context, imagePath string) (ports.VisionPrediction, error) {
	if ctx == nil {
		return ports.VisionPrediction{}, errors.New("context is required")
	}
	if c.predictURL == "" {
		return ports.VisionPrediction{}, errors.New("vision predict url not configured")
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return ports.VisionPrediction{}, errs.Wrap(err, "open image")
	}
	defer func() { _ = file.Close() }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return ports.VisionPrediction{}, errs.Wrap(err, "create multipart field")
	}
	if _, err := io.Copy(part, file); err != nil {
		return ports.VisionPrediction{}, errs.Wrap(err, "copy image into request")
	}
	if err := writer.Close(); err != nil {
		return ports.VisionPrediction{}, errs.Wrap(err, "finalize multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predictURL, &body)
	if err != nil {
		return ports.VisionPrediction{}, errs.Wrap(err, "build predict request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.VisionPrediction{}, fmt.Errorf("%w: %w", ports.ErrVisionUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ports.VisionPrediction{}, fmt.Errorf("%w: predict returned status %d", ports.ErrVisionUnavailable, resp.StatusCode)
	}

	var decoded predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.VisionPrediction{}, fmt.Errorf("%w: decode predict response: %w", ports.ErrVisionUnavailable, err)
	}

	return ports.VisionPrediction{
		Prediction: decoded.Prediction,
		Confidence: decoded.Confidence,
	}, nil
}
