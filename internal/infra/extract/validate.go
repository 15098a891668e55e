package extract

import (
	"fmt"
	"strings"
	"time"

	"whistlemcp/internal/domain"
)

// ValidationResult reports whether an extraction is actionable. Warnings
// describe adjustments applied in place (clamped radius, trimmed tags);
// errors block creation.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validate checks and repairs an extraction before it becomes a whistle.
func Validate(data *Extraction, now time.Time) ValidationResult {
	var errs, warnings []string

	if len(strings.TrimSpace(data.Description)) < 5 {
		errs = append(errs, "Description is too short")
	}

	if data.AlertRadius < 1 {
		data.AlertRadius = domain.DefaultAlertRadiusKm
		warnings = append(warnings, fmt.Sprintf("Alert radius set to minimum (%dkm)", domain.DefaultAlertRadiusKm))
	} else if data.AlertRadius > domain.MaxAlertRadiusKm {
		data.AlertRadius = domain.MaxAlertRadiusKm
		warnings = append(warnings, fmt.Sprintf("Alert radius capped at maximum (%dkm)", domain.MaxAlertRadiusKm))
	}

	if len(data.Tags) == 0 {
		if data.Confidence > 0.5 {
			errs = append(errs, "No services could be identified")
		} else {
			warnings = append(warnings, "Services unclear - may need clarification")
		}
	} else if len(data.Tags) > domain.MaxWhistleTags {
		data.Tags = data.Tags[:domain.MaxWhistleTags]
		warnings = append(warnings, fmt.Sprintf("Too many tags - limited to first %d", domain.MaxWhistleTags))
	}

	if data.Provider == nil && data.Confidence > 0.6 {
		errs = append(errs, "Cannot determine if offering or seeking services")
	}

	if data.Expiry != "never" {
		expiry, err := time.Parse(time.RFC3339, data.Expiry)
		if err != nil {
			warnings = append(warnings, "Expiry date format unclear - using default")
			data.Expiry = now.Add(domain.DefaultWhistleExpiry).UTC().Format(time.RFC3339)
		} else if !expiry.After(now) {
			errs = append(errs, "Expiry date is in the past")
		}
	}

	return ValidationResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}

// Suggestions builds contextual hints for a clarification response.
func Suggestions(data Extraction, result ValidationResult) []string {
	var suggestions []string

	if data.Confidence < 0.3 {
		suggestions = append(suggestions, "Try rephrasing your request with more specific details about what you need or can offer")
	}
	if len(data.Tags) == 0 {
		suggestions = append(suggestions, "Please specify the type of service more clearly (e.g., 'home repair', 'tutoring', 'delivery')")
	}
	if data.Provider == nil {
		suggestions = append(suggestions, "Clarify whether you're offering a service ('I can...') or looking for one ('I need...')")
	}
	if data.Confidence < 0.5 && len(data.Tags) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("I detected these services: %s. Is this correct?", strings.Join(data.Tags, ", ")))
	}
	for _, err := range result.Errors {
		lower := strings.ToLower(err)
		if strings.Contains(lower, "services") {
			suggestions = append(suggestions, "Try being more specific about the type of help or service involved")
		} else if strings.Contains(lower, "offering or seeking") {
			suggestions = append(suggestions, "Make it clearer whether you're offering help or asking for help")
		}
	}

	return suggestions
}
