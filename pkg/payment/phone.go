package payment

import (
	"regexp"
	"strings"
)

const countryCode = "254"

var canonicalPhone = regexp.MustCompile(`^254\d{9}$`)

// NormalizePhone reshapes a Kenyan MSISDN into the 2547XXXXXXXX form the
// provider requires. "+" signs are dropped first; a 10 character local
// number starting with 0 gets the country code instead of the zero.
func NormalizePhone(raw string) (string, error) {
	phone := strings.ReplaceAll(strings.TrimSpace(raw), "+", "")
	switch {
	case canonicalPhone.MatchString(phone):
		return phone, nil
	case strings.HasPrefix(phone, "0") && len(phone) == 10:
		phone = countryCode + phone[1:]
		if canonicalPhone.MatchString(phone) {
			return phone, nil
		}
	}
	return "", &FormatError{Field: "phone_number", Err: ErrInvalidPhone}
}
