package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whistlemcp/internal/domain"
)

func boolPtr(v bool) *bool { return &v }

func validExtraction() Extraction {
	return Extraction{
		Description: "I offer plumbing services",
		Tags:        []string{"plumbing"},
		Provider:    boolPtr(true),
		AlertRadius: 5,
		Expiry:      "2030-01-01T00:00:00Z",
		Confidence:  0.9,
	}
}

func TestValidateAcceptsGoodExtraction(t *testing.T) {
	data := validExtraction()
	result := Validate(&data, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateShortDescription(t *testing.T) {
	data := validExtraction()
	data.Description = "hi"
	result := Validate(&data, time.Now())
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "Description is too short")
}

func TestValidateClampsRadius(t *testing.T) {
	data := validExtraction()
	data.AlertRadius = 0
	result := Validate(&data, time.Now())
	assert.True(t, result.Valid)
	assert.Equal(t, domain.DefaultAlertRadiusKm, data.AlertRadius)
	assert.NotEmpty(t, result.Warnings)

	data = validExtraction()
	data.AlertRadius = 5000
	result = Validate(&data, time.Now())
	assert.True(t, result.Valid)
	assert.Equal(t, domain.MaxAlertRadiusKm, data.AlertRadius)
}

func TestValidateTagCap(t *testing.T) {
	data := validExtraction()
	data.Tags = make([]string, domain.MaxWhistleTags+5)
	for i := range data.Tags {
		data.Tags[i] = "tag"
	}
	result := Validate(&data, time.Now())
	assert.True(t, result.Valid)
	assert.Len(t, data.Tags, domain.MaxWhistleTags)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateNoTagsHighConfidence(t *testing.T) {
	data := validExtraction()
	data.Tags = nil
	result := Validate(&data, time.Now())
	assert.False(t, result.Valid)
}

func TestValidateUnknownProviderHighConfidence(t *testing.T) {
	data := validExtraction()
	data.Provider = nil
	result := Validate(&data, time.Now())
	assert.False(t, result.Valid)

	data = validExtraction()
	data.Provider = nil
	data.Confidence = 0.4
	data.Tags = []string{"plumbing"}
	result = Validate(&data, time.Now())
	assert.True(t, result.Valid, "low confidence defers the provider question to clarification")
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	data := validExtraction()
	data.Expiry = "2020-01-01T00:00:00Z"
	result := Validate(&data, now)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "Expiry date is in the past")

	data = validExtraction()
	data.Expiry = "tomorrow-ish"
	result = Validate(&data, now)
	assert.True(t, result.Valid)
	assert.Equal(t, now.Add(domain.DefaultWhistleExpiry).UTC().Format(time.RFC3339), data.Expiry)

	data = validExtraction()
	data.Expiry = "never"
	result = Validate(&data, now)
	assert.True(t, result.Valid)
}

func TestSuggestions(t *testing.T) {
	data := Extraction{Description: "help", Confidence: 0.2}
	result := Validate(&data, time.Now())
	require.False(t, result.Valid)

	suggestions := Suggestions(data, result)
	assert.NotEmpty(t, suggestions)
}
