// Package advisory calls the external text-generation service for maintenance
// guidance. The service is never trusted: severity is re-normalized by the
// domain layer and every failure here degrades to a fixed fallback result so
// ingestion can proceed without it.
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"railguard/internal/bootstrap/config"
	"railguard/internal/bootstrap/logging"
	"railguard/internal/errs"
	"railguard/internal/ports"
)

const systemPrompt = "You are a helpful AI assistant that outputs only valid JSON strings."

type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
	enabled bool
}

var _ ports.AdvisoryClient = (*Client)(nil)

func NewClient(cfg config.AdvisoryConfig, opts ...option.RequestOption) *Client {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &Client{
		api:     openai.NewClient(clientOpts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		enabled: strings.TrimSpace(cfg.APIKey) != "",
	}
}

// advisoryPayload is the wire shape requested from the service. The flexText
// fields tolerate the model returning arrays instead of strings.
type advisoryPayload struct {
	RootCause                 flexText `json:"root_cause" jsonschema:"description=Possible reasons for this defect"`
	Severity                  string   `json:"severity" jsonschema:"enum=Low,enum=High,enum=Critical"`
	ImmediateAction           flexText `json:"immediate_action" jsonschema:"description=What needs to be done immediately"`
	ResolutionSteps           flexText `json:"resolution_steps" jsonschema:"description=Step-by-step maintenance instructions"`
	PreventiveRecommendations flexText `json:"preventive_recommendations" jsonschema:"description=How to prevent this in the future"`
}

var advisorySchema = func() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(advisoryPayload{})
}()

// Analyze requests guidance for a detected defect. It never returns an error
// for service-side trouble: missing credentials, transport failures and
// malformed output all yield the fallback result with SeverityRaw "High".
func (c *Client) Analyze(ctx context.Context, defectType string, confidence float64, locationDescription string) (ports.AdvisoryResult, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "advisory.client"))

	if !c.enabled {
		logging.Warn(logCtx, "advisory api key not configured, using fallback guidance")
		return missingCredentialsResult(), nil
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	completion, err := c.api.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(defectType, confidence, locationDescription)),
		},
		Temperature: openai.Float(0.1),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "defect_advisory",
					Schema: advisorySchema,
				},
			},
		},
	})
	if err != nil {
		logging.Warn(logCtx, "advisory service call failed, using fallback guidance",
			slog.Any("err", errs.Loggable(err)))
		return fallbackResult(), nil
	}
	if len(completion.Choices) == 0 {
		logging.Warn(logCtx, "advisory service returned no choices, using fallback guidance")
		return fallbackResult(), nil
	}

	payload, err := decodePayload(completion.Choices[0].Message.Content)
	if err != nil {
		logging.Warn(logCtx, "advisory response rejected, using fallback guidance",
			slog.Any("err", errs.Loggable(err)))
		return fallbackResult(), nil
	}

	return ports.AdvisoryResult{
		RootCause:                 payload.RootCause.String(),
		SeverityRaw:               payload.Severity,
		ImmediateAction:           payload.ImmediateAction.String(),
		ResolutionSteps:           payload.ResolutionSteps.String(),
		PreventiveRecommendations: payload.PreventiveRecommendations.String(),
	}, nil
}

func buildPrompt(defectType string, confidence float64, locationDescription string) string {
	var b strings.Builder
	b.WriteString("You are a Railway Safety Expert. A defect has been detected on the track.\n\n")
	b.WriteString("Details:\n")
	fmt.Fprintf(&b, "- Defect Type: %s\n", defectType)
	fmt.Fprintf(&b, "- Confidence: %.1f%%\n", confidence)
	fmt.Fprintf(&b, "- Location: %s\n\n", locationDescription)
	b.WriteString("Provide a strict JSON response with the following keys:\n")
	b.WriteString("- \"root_cause\": Possible reasons for this defect (2-3 sentences).\n")
	b.WriteString("- \"severity\": MUST be EXACTLY one of: \"Low\", \"High\", or \"Critical\".\n")
	b.WriteString("- \"immediate_action\": What needs to be done immediately? (1-2 sentences)\n")
	b.WriteString("- \"resolution_steps\": Step-by-step maintenance/repair instructions (3-5 steps).\n")
	b.WriteString("- \"preventive_recommendations\": How to prevent this in the future.\n\n")
	b.WriteString("IMPORTANT: Return ONLY valid JSON. No markdown formatting.")
	return b.String()
}

func missingCredentialsResult() ports.AdvisoryResult {
	return ports.AdvisoryResult{
		RootCause:                 "API Key Missing",
		SeverityRaw:               "High",
		ImmediateAction:           "Check Server Configuration",
		ResolutionSteps:           "Add advisory API key to configuration",
		PreventiveRecommendations: "N/A",
	}
}

func fallbackResult() ports.AdvisoryResult {
	return ports.AdvisoryResult{
		RootCause:                 "AI Analysis Failed",
		SeverityRaw:               "High",
		ImmediateAction:           "Manual Inspection Required",
		ResolutionSteps:           "Contact Technical Support",
		PreventiveRecommendations: "Check API Quota or Connection",
	}
}

// flexText decodes either a JSON string or an array of strings; arrays are
// flattened with "; " so storage only ever sees plain text.
type flexText string

func (t *flexText) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = flexText(single)
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*t = flexText(strings.Join(many, "; "))
		return nil
	}

	return fmt.Errorf("expected string or string array, got %s", string(data))
}

func (t flexText) String() string {
	return string(t)
}
