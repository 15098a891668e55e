package tools

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"whistlemcp/internal/domain"
	"whistlemcp/internal/infra/extract"
)

type createWhistleArgs struct {
	UserInput           string  `json:"user_input"`
	AccessToken         string  `json:"access_token"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	ForceCreate         bool    `json:"force_create"`
}

func (r *Registry) handleCreateWhistle(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createWhistleArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err, nil), nil
	}
	if strings.TrimSpace(args.UserInput) == "" {
		return errorResult(domain.E(domain.CodeInvalidArgument, "tools.create_whistle",
			"user_input must not be empty.", nil), nil), nil
	}
	threshold := args.ConfidenceThreshold
	if threshold == 0 {
		threshold = domain.DefaultConfidenceFloor
	}

	extraction := r.extractor.Extract(ctx, args.UserInput)
	validation := extract.Validate(&extraction, time.Now())

	// force_create overrides only the confidence threshold; ambiguous or
	// invalid extractions always come back for clarification.
	if extraction.NeedsClarification {
		return textResult(clarificationBody(extraction, validation)), nil
	}
	if !validation.Valid {
		return textResult(clarificationBody(extraction, validation)), nil
	}
	if extraction.Confidence < threshold && !args.ForceCreate {
		body := clarificationBody(extraction, validation)
		body["message"] = "I'm not fully confident I understood your request. Please confirm or rephrase."
		return textResult(body), nil
	}

	provider := false
	if extraction.Provider != nil {
		provider = *extraction.Provider
	}
	payload := map[string]any{
		"whistle": map[string]any{
			"description": extraction.Description,
			"tags":        extraction.Tags,
			"alertRadius": extraction.AlertRadius,
			"expiry":      extraction.Expiry,
			"provider":    provider,
			"active":      true,
		},
	}

	headers := map[string]string{"Authorization": args.AccessToken}
	result, err := r.backend.Request(ctx, "POST", "/whistle", payload, headers)
	if err != nil {
		return textResult(map[string]any{
			"status": domain.StatusError,
			"error":  whistleCreateErrorMessage(err),
		}), nil
	}

	created := cast.ToStringMap(result["newWhistle"])
	if len(created) == 0 {
		return textResult(map[string]any{
			"status": domain.StatusError,
			"error":  "Whistle creation failed - no whistle returned",
		}), nil
	}

	r.logger.Info("whistle created",
		zap.Strings("tags", extraction.Tags),
		zap.Bool("provider", provider))

	return textResult(map[string]any{
		"status":            domain.StatusSuccess,
		"message":           "Whistle created successfully!",
		"whistle":           formatWhistle(created),
		"warnings":          validation.Warnings,
		"matching_whistles": cast.ToSlice(result["matchingWhistles"]),
	}), nil
}

func clarificationBody(extraction extract.Extraction, validation extract.ValidationResult) map[string]any {
	reason := extraction.ClarificationReason
	if reason == "" && len(validation.Errors) > 0 {
		reason = strings.Join(validation.Errors, "; ")
	}
	return map[string]any{
		"status":      domain.StatusClarificationNeeded,
		"reason":      reason,
		"confidence":  extraction.Confidence,
		"understood":  map[string]any{"tags": extraction.Tags, "provider": extraction.Provider, "alert_radius": extraction.AlertRadius, "expiry": extraction.Expiry},
		"suggestions": extract.Suggestions(extraction, validation),
	}
}

// whistleCreateErrorMessage translates backend error codes into guidance
// the end user can act on.
func whistleCreateErrorMessage(err error) string {
	msg := domain.MessageFrom(err)
	switch {
	case strings.Contains(msg, "ETLIMIT"):
		return "You've reached the maximum number of whistle tags allowed. Please remove an existing whistle before creating a new one."
	case strings.Contains(strings.ToLower(msg), "referral"):
		return msg
	default:
		return "Failed to create whistle: " + msg
	}
}

type listWhistlesArgs struct {
	AccessToken string `json:"access_token"`
	ActiveOnly  bool   `json:"active_only"`
}

func (r *Registry) handleListWhistles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listWhistlesArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err, nil), nil
	}

	headers := map[string]string{"Authorization": args.AccessToken}
	result, err := r.backend.Request(ctx, "GET", "/user", nil, headers)
	if err != nil {
		return errorResult(err, nil), nil
	}

	user := cast.ToStringMap(result["user"])
	if user == nil {
		user = result
	}

	// The user document stores its whistles under "Whistles"; keep the
	// lowercase key as a fallback for older payloads.
	raw := cast.ToSlice(user["Whistles"])
	if len(raw) == 0 {
		raw = cast.ToSlice(user["whistles"])
	}

	whistles := make([]domain.Whistle, 0, len(raw))
	for _, entry := range raw {
		record := cast.ToStringMap(entry)
		if record == nil {
			continue
		}
		w := formatWhistle(record)
		if args.ActiveOnly && !w.Active {
			continue
		}
		whistles = append(whistles, w)
	}

	return textResult(map[string]any{
		"success":  true,
		"whistles": whistles,
		"count":    len(whistles),
	}), nil
}

// formatWhistle normalizes a backend whistle record, filling the
// defaults the backend omits: radius 2km, expiry "never", active true.
func formatWhistle(record map[string]any) domain.Whistle {
	radius := cast.ToInt(record["alertRadius"])
	if radius == 0 {
		radius = domain.DefaultAlertRadiusKm
	}
	expiry := cast.ToString(record["expiry"])
	if expiry == "" {
		expiry = "never"
	}
	active := true
	if v, ok := record["active"]; ok {
		active = cast.ToBool(v)
	}
	return domain.Whistle{
		ID:          idOf(record),
		Description: cast.ToString(record["description"]),
		Tags:        cast.ToStringSlice(record["tags"]),
		AlertRadius: radius,
		Expiry:      expiry,
		Provider:    cast.ToBool(record["provider"]),
		Active:      active,
	}
}
