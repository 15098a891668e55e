package domain

// NormalizedPhone is the derived pair produced by phone normalization:
// subscriber digits only, country code always "+"-prefixed.
type NormalizedPhone struct {
	CountryCode string
	Phone       string
}

// ProviderRecord is the uniform search-result shape regardless of which
// upstream payload layout produced it.
type ProviderRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Address   string  `json:"address"`
	Distance  float64 `json:"distance"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Rating    float64 `json:"rating"`
}

// Whistle is the uniform whistle shape returned by create_whistle and
// list_whistles.
type Whistle struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	AlertRadius int      `json:"alertRadius"`
	Expiry      string   `json:"expiry"`
	Provider    bool     `json:"provider"`
	Active      bool     `json:"active"`
}

// Reachability mirrors the backend's per-channel contact flags.
type Reachability struct {
	Call  bool `json:"call"`
	SMS   bool `json:"SMS"`
	Email bool `json:"email"`
}

// UserProfile is the backend user object with `_id` normalized to `id`.
// Unknown upstream fields are ignored on decode.
type UserProfile struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Phone               string        `json:"phone"`
	CountryCode         string        `json:"countryCode"`
	Active              bool          `json:"active"`
	Verified            bool          `json:"verified"`
	Certified           bool          `json:"certified"`
	Visible             bool          `json:"visible"`
	TaxiProvider        bool          `json:"taxiProvider"`
	UserType            string        `json:"usertype,omitempty"`
	SafetyAlertsEnabled bool          `json:"safetyAlertsEnabled"`
	Reachability        *Reachability `json:"reachability,omitempty"`
	CreatedAt           string        `json:"createdAt,omitempty"`
	UpdatedAt           string        `json:"updatedAt,omitempty"`
}

// WhistleStatus is the tri-state outcome of create_whistle.
type WhistleStatus string

const (
	StatusSuccess             WhistleStatus = "success"
	StatusError               WhistleStatus = "error"
	StatusClarificationNeeded WhistleStatus = "clarification_needed"
)
