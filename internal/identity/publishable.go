package identity

import (
	"encoding/base64"
	"strings"
)

// IssuerFromPublishableKey decodes the frontend API host embedded in a
// publishable key (pk_test_<base64(host$)> or pk_live_...) and returns the
// token issuer "https://host".
func IssuerFromPublishableKey(pk string) (string, bool) {
	var encoded string
	switch {
	case strings.HasPrefix(pk, "pk_test_"):
		encoded = strings.TrimPrefix(pk, "pk_test_")
	case strings.HasPrefix(pk, "pk_live_"):
		encoded = strings.TrimPrefix(pk, "pk_live_")
	default:
		return "", false
	}

	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return "", false
	}
	host, ok := strings.CutSuffix(string(raw), "$")
	if !ok || host == "" {
		return "", false
	}
	return "https://" + host, true
}
