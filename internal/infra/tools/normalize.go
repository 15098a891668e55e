package tools

import (
	"fmt"
	"regexp"
	"strings"

	"whistlemcp/internal/domain"
)

var (
	phoneJunkRe  = regexp.MustCompile(`[()\-\s]`)
	plusPhoneRe  = regexp.MustCompile(`^\+(\d{4,})$`)
	digitsOnlyRe = regexp.MustCompile(`^\d+$`)
)

// twoDigitCallingCodes lists the ITU calling codes that are exactly two
// digits long. The full code list is prefix-free: zones 1 and 7 use a
// single digit, the codes below use two, and every remaining assignment
// uses three. That makes the embedded-code split deterministic without
// a full country table.
var twoDigitCallingCodes = map[string]struct{}{
	"20": {}, "27": {}, "30": {}, "31": {}, "32": {}, "33": {}, "34": {},
	"36": {}, "39": {}, "40": {}, "41": {}, "43": {}, "44": {}, "45": {},
	"46": {}, "47": {}, "48": {}, "49": {}, "51": {}, "52": {}, "53": {},
	"54": {}, "55": {}, "56": {}, "57": {}, "58": {}, "60": {}, "61": {},
	"62": {}, "63": {}, "64": {}, "65": {}, "66": {}, "81": {}, "82": {},
	"84": {}, "86": {}, "90": {}, "91": {}, "92": {}, "93": {}, "94": {},
	"95": {}, "98": {},
}

// splitCallingCode separates a digit string into its leading calling
// code and the subscriber number. "15551234567" yields ("1",
// "5551234567") and "9715551234567" yields ("971", "5551234567").
func splitCallingCode(digits string) (code, rest string) {
	if digits[0] == '1' || digits[0] == '7' {
		return digits[:1], digits[1:]
	}
	if _, ok := twoDigitCallingCodes[digits[:2]]; ok {
		return digits[:2], digits[2:]
	}
	return digits[:3], digits[3:]
}

// NormalizePhone applies the sign-in phone rules: strip formatting
// characters, split an embedded "+<code><number>" (which overrides the
// country code argument), strip leading zeros, and require digit-only
// results. The returned country code always starts with "+".
func NormalizePhone(phone, countryCode string) (domain.NormalizedPhone, error) {
	raw := phoneJunkRe.ReplaceAllString(strings.TrimSpace(phone), "")

	switch {
	case strings.HasPrefix(raw, "+"):
		match := plusPhoneRe.FindStringSubmatch(raw)
		if match == nil {
			return domain.NormalizedPhone{}, domain.E(domain.CodeInvalidArgument, "normalize.phone",
				"Invalid phone format. Expected '+<code><number>'.", nil)
		}
		code, rest := splitCallingCode(match[1])
		countryCode = "+" + code
		raw = rest
	case strings.HasPrefix(raw, "0"):
		raw = strings.TrimLeft(raw, "0")
	}

	if !digitsOnlyRe.MatchString(raw) {
		return domain.NormalizedPhone{}, domain.E(domain.CodeInvalidArgument, "normalize.phone",
			"Phone must contain digits only, without country code.", nil)
	}

	code, err := normalizeCountryCode(countryCode)
	if err != nil {
		return domain.NormalizedPhone{}, err
	}

	return domain.NormalizedPhone{CountryCode: code, Phone: raw}, nil
}

func normalizeCountryCode(countryCode string) (string, error) {
	code := strings.TrimSpace(countryCode)
	if !strings.HasPrefix(code, "+") {
		if digitsOnlyRe.MatchString(code) {
			code = "+" + code
		} else {
			return "", domain.E(domain.CodeInvalidArgument, "normalize.country_code",
				"Country code must be digits or start with '+' followed by digits.", nil)
		}
	}
	if !digitsOnlyRe.MatchString(strings.TrimPrefix(code, "+")) {
		return "", domain.E(domain.CodeInvalidArgument, "normalize.country_code",
			"Country code must start with '+' followed by digits.", nil)
	}
	return code, nil
}

func validateCoordinates(latitude, longitude float64) error {
	if latitude < -90 || latitude > 90 {
		return domain.E(domain.CodeInvalidArgument, "normalize.coordinates",
			"latitude must be between -90 and 90.", nil)
	}
	if longitude < -180 || longitude > 180 {
		return domain.E(domain.CodeInvalidArgument, "normalize.coordinates",
			"longitude must be between -180 and 180.", nil)
	}
	return nil
}

// validateUserID guards against phone numbers passed where an opaque id
// is expected.
func validateUserID(userID string) error {
	if userID == "" {
		return domain.E(domain.CodeInvalidArgument, "normalize.user_id",
			"Invalid user_id. Must be a non-empty string.", nil)
	}
	if digitsOnlyRe.MatchString(userID) || strings.HasPrefix(userID, "+") {
		return domain.E(domain.CodeInvalidArgument, "normalize.user_id",
			"user_id looks like a phone number. Please provide valid user_id from sign_in.", nil)
	}
	return nil
}

func validateOTPCode(otpCode string) error {
	if !digitsOnlyRe.MatchString(otpCode) {
		return domain.E(domain.CodeInvalidArgument, "normalize.otp_code",
			"otp_code must contain only digits.", nil)
	}
	return nil
}

// sanitizeKeyword keeps the first segment of a pipe-delimited keyword
// list; the caller logs when segments were dropped.
func sanitizeKeyword(keyword string) (string, bool) {
	if strings.Contains(keyword, "|") {
		return strings.TrimSpace(strings.SplitN(keyword, "|", 2)[0]), true
	}
	return keyword, false
}

func boundedInt(value, fallback, min, max int, name string) (int, error) {
	if value == 0 {
		return fallback, nil
	}
	if value < min || value > max {
		return 0, domain.E(domain.CodeInvalidArgument, "normalize."+name,
			fmt.Sprintf("%s must be between %d and %d.", name, min, max), nil)
	}
	return value, nil
}
