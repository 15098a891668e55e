package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whistlemcp/internal/domain"
)

func TestNormalizeProvidersFlatShape(t *testing.T) {
	payload := map[string]any{
		"providers": []any{
			map[string]any{
				"_id":         "p1",
				"name":        "Quick Plumbing",
				"countryCode": "+91",
				"phone":       "9994076214",
				"address":     "12 Main St",
				"distance":    1.234,
				"latitude":    12.97,
				"longitude":   77.59,
				"likes":       []any{"a", "b", "c"},
				"dislikes":    []any{},
			},
		},
	}

	records := NormalizeProviders(payload)
	require.Len(t, records, 1)
	got := records[0]
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "Quick Plumbing", got.Name)
	assert.Equal(t, "+91 9994076214", got.Phone)
	assert.Equal(t, 1.2, got.Distance)
	assert.Equal(t, 12.97, got.Latitude)
	assert.Equal(t, 77.59, got.Longitude)
	assert.Equal(t, 5.0, got.Rating)
}

func TestNormalizeProvidersNestedShape(t *testing.T) {
	payload := map[string]any{
		"matchingWhistles": []any{
			map[string]any{
				"item": map[string]any{
					"_id":         "w1",
					"name":        "Tutor Near You",
					"countryCode": "+91",
					"phone":       "9994076214",
					"dis":         4.27,
					"location": map[string]any{
						"address":     "12 MG Road",
						"coordinates": []any{77.59, 12.97},
					},
					"likes":    []any{"x"},
					"dislikes": []any{"y"},
				},
			},
		},
	}

	records := NormalizeProviders(payload)
	require.Len(t, records, 1)
	got := records[0]
	assert.Equal(t, "w1", got.ID)
	assert.Equal(t, "Tutor Near You", got.Name)
	assert.Equal(t, "+91 9994076214", got.Phone)
	assert.Equal(t, "12 MG Road", got.Address)
	assert.Equal(t, 4.3, got.Distance)
	assert.Equal(t, 12.97, got.Latitude)
	assert.Equal(t, 77.59, got.Longitude)
	assert.Equal(t, 2.5, got.Rating)
}

func TestNormalizeProvidersBareArray(t *testing.T) {
	payload := map[string]any{
		"results": []any{
			map[string]any{"id": "r1", "name": "Cleaner"},
		},
	}

	records := NormalizeProviders(payload)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, domain.NeutralFeedbackRating, records[0].Rating)
}

func TestFeedbackRating(t *testing.T) {
	tests := []struct {
		name     string
		likes    int
		dislikes int
		want     float64
	}{
		{"no feedback is neutral", 0, 0, 2.5},
		{"all likes", 3, 0, 5.0},
		{"all dislikes", 0, 3, 0.0},
		{"split is neutral", 1, 1, 2.5},
		{"two thirds positive", 2, 1, 3.33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := map[string]any{
				"likes":    make([]any, tt.likes),
				"dislikes": make([]any, tt.dislikes),
			}
			assert.InDelta(t, tt.want, feedbackRating(record), 0.001)
		})
	}
}

func TestHandleSearchBusinesses(t *testing.T) {
	backend := &fakeBackend{result: map[string]any{
		"providers": []any{
			map[string]any{"_id": "p1", "name": "Quick Plumbing"},
		},
	}}
	registry := newTestRegistry(backend)

	res, err := registry.handleSearchBusinesses(context.Background(), callReq(domain.ToolSearchBusinesses,
		`{"keyword":"plumber|electrician","latitude":12.97,"longitude":77.59}`))
	require.NoError(t, err)
	require.False(t, res.IsError)

	body := structured(t, res)
	assert.Equal(t, 1, body["total_count"])
	assert.Equal(t, "plumber", body["keyword"])
	assert.Equal(t, domain.DefaultSearchRadius, body["search_radius"])

	sent, ok := backend.lastBody.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "plumber", sent["keyword"], "only the first keyword is forwarded")
	assert.Equal(t, []float64{77.59, 12.97}, sent["location"], "location is longitude-first")
	assert.Equal(t, domain.DefaultSearchRadius, sent["radius"])
	assert.Equal(t, domain.DefaultSearchLimit, sent["limit"])
	assert.Equal(t, true, sent["provider"])
	assert.Equal(t, true, sent["visible"])
}

func TestHandleSearchBusinessesDegradesOnBackendError(t *testing.T) {
	backend := &fakeBackend{err: domain.E(domain.CodeUnavailable, "backend.request", "backend down", nil)}
	registry := newTestRegistry(backend)

	res, err := registry.handleSearchBusinesses(context.Background(), callReq(domain.ToolSearchBusinesses,
		`{"keyword":"plumber","latitude":12.97,"longitude":77.59}`))
	require.NoError(t, err)
	require.False(t, res.IsError, "search failures degrade, they do not fail the call")

	body := structured(t, res)
	assert.Equal(t, 0, body["total_count"])
	assert.Equal(t, "backend down", body["error"])
}

func TestHandleSearchBusinessesRejectsOutOfRangeRadius(t *testing.T) {
	backend := &fakeBackend{}
	registry := newTestRegistry(backend)

	res, err := registry.handleSearchBusinesses(context.Background(), callReq(domain.ToolSearchBusinesses,
		`{"keyword":"plumber","latitude":12.97,"longitude":77.59,"radius":1001}`))
	require.NoError(t, err)
	require.True(t, res.IsError)
	assert.Equal(t, 0, backend.calls)
}
