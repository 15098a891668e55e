package tools

import (
	"context"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"whistlemcp/internal/domain"
)

type searchArgs struct {
	Keyword   string  `json:"keyword"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    int     `json:"radius"`
	Limit     int     `json:"limit"`
}

func (r *Registry) handleSearchBusinesses(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err, nil), nil
	}

	radius, err := boundedInt(args.Radius, domain.DefaultSearchRadius, 1, 1000, "radius")
	if err != nil {
		return errorResult(err, nil), nil
	}
	limit, err := boundedInt(args.Limit, domain.DefaultSearchLimit, 1, 1000, "limit")
	if err != nil {
		return errorResult(err, nil), nil
	}

	keyword, truncated := sanitizeKeyword(args.Keyword)
	if truncated {
		r.logger.Warn("multiple keywords supplied, using first only",
			zap.String("keyword", keyword))
	}

	payload := map[string]any{
		"keyword":  keyword,
		"limit":    limit,
		"location": []float64{args.Longitude, args.Latitude},
		"provider": true,
		"radius":   radius,
		"visible":  true,
	}

	result, err := r.backend.Request(ctx, "POST", "/searchAround", payload, nil)
	if err != nil {
		// Search degrades instead of failing: an empty list plus the
		// error string keeps conversational callers moving.
		r.logger.Warn("search failed", zap.Error(err))
		return textResult(searchBody(keyword, args, radius, nil, domain.MessageFrom(err))), nil
	}

	return textResult(searchBody(keyword, args, radius, NormalizeProviders(result), "")), nil
}

func searchBody(keyword string, args searchArgs, radius int, providers []domain.ProviderRecord, errMsg string) map[string]any {
	if providers == nil {
		providers = []domain.ProviderRecord{}
	}
	body := map[string]any{
		"success":         true,
		"keyword":         keyword,
		"providers":       providers,
		"total_count":     len(providers),
		"search_radius":   radius,
		"search_location": map[string]float64{"latitude": args.Latitude, "longitude": args.Longitude},
	}
	if errMsg != "" {
		body["error"] = errMsg
	}
	return body
}

// NormalizeProviders folds the backend's search payload shapes into one
// record list. The flat shape carries providers directly; the nested
// shape wraps each hit in an "item" envelope with feedback arrays.
func NormalizeProviders(result map[string]any) []domain.ProviderRecord {
	raw := cast.ToSlice(result["providers"])
	if len(raw) == 0 {
		if nested, ok := result["matchingWhistles"]; ok {
			raw = cast.ToSlice(nested)
		}
	}
	if len(raw) == 0 {
		// Bare top-level arrays arrive wrapped under "results".
		raw = cast.ToSlice(result["results"])
	}

	providers := make([]domain.ProviderRecord, 0, len(raw))
	for _, entry := range raw {
		record := cast.ToStringMap(entry)
		if record == nil {
			continue
		}
		if item, ok := record["item"]; ok {
			providers = append(providers, normalizeNested(cast.ToStringMap(item)))
			continue
		}
		providers = append(providers, normalizeFlat(record))
	}
	return providers
}

func normalizeFlat(record map[string]any) domain.ProviderRecord {
	address := cast.ToString(record["address"])
	if address == "" {
		address = cast.ToString(record["location"])
	}
	lat := cast.ToFloat64(record["latitude"])
	if lat == 0 {
		lat = cast.ToFloat64(record["lat"])
	}
	lng := cast.ToFloat64(record["longitude"])
	if lng == 0 {
		lng = cast.ToFloat64(record["lng"])
	}
	return domain.ProviderRecord{
		ID:        idOf(record),
		Name:      firstString(record, "name", "title"),
		Phone:     joinPhone(record),
		Address:   address,
		Distance:  roundTo(cast.ToFloat64(record["distance"]), 1),
		Latitude:  lat,
		Longitude: lng,
		Rating:    feedbackRating(record),
	}
}

// normalizeNested handles matchingWhistles entries: the whistle carries
// its distance as "dis" and keeps address and coordinates under a
// GeoJSON-style "location" object.
func normalizeNested(item map[string]any) domain.ProviderRecord {
	location := cast.ToStringMap(item["location"])
	var lat, lng float64
	if coords := cast.ToSlice(location["coordinates"]); len(coords) >= 2 {
		// Coordinates arrive in GeoJSON order: [longitude, latitude].
		lat = cast.ToFloat64(coords[1])
		lng = cast.ToFloat64(coords[0])
	}
	return domain.ProviderRecord{
		ID:        cast.ToString(item["_id"]),
		Name:      cast.ToString(item["name"]),
		Phone:     joinPhone(item),
		Address:   cast.ToString(location["address"]),
		Distance:  roundTo(cast.ToFloat64(item["dis"]), 1),
		Latitude:  lat,
		Longitude: lng,
		Rating:    feedbackRating(item),
	}
}

func idOf(record map[string]any) string {
	if id := cast.ToString(record["id"]); id != "" {
		return id
	}
	return cast.ToString(record["_id"])
}

func firstString(record map[string]any, keys ...string) string {
	for _, key := range keys {
		if value := cast.ToString(record[key]); value != "" {
			return value
		}
	}
	return ""
}

func joinPhone(record map[string]any) string {
	code := cast.ToString(record["countryCode"])
	phone := cast.ToString(record["phone"])
	if code == "" {
		return phone
	}
	if phone == "" {
		return ""
	}
	return code + " " + phone
}

// feedbackRating maps like/dislike counts onto a 0-5 scale. No feedback
// means the neutral midpoint, not zero.
func feedbackRating(record map[string]any) float64 {
	likes := len(cast.ToSlice(record["likes"]))
	dislikes := len(cast.ToSlice(record["dislikes"]))
	total := likes + dislikes
	if total == 0 {
		return domain.NeutralFeedbackRating
	}
	score := (float64(likes-dislikes)/float64(total) + 1) * 2.5
	return roundTo(score, 2)
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
