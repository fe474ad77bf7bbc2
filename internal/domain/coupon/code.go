package coupon

import (
	"crypto/rand"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
)

// codeAlphabet omits I, O, 0 and 1 to avoid misreads. Its length is 32 so a
// random byte masked to five bits maps onto it without bias.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var codePattern = regexp.MustCompile(`^[A-Z0-9-]{3,50}$`)

// NormalizeCode trims and uppercases a customer-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCode reports whether a normalized code has an acceptable format.
func IsValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// GenerateCode returns a random code shaped XXX-XXXX, optionally preceded by
// prefix and a dash.
func GenerateCode(prefix string) (string, error) {
	var buf [7]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", errors.Wrap(err, "read random")
	}
	for i := range buf {
		buf[i] = codeAlphabet[buf[i]&31]
	}

	code := string(buf[:3]) + "-" + string(buf[3:])
	if prefix = NormalizeCode(prefix); prefix != "" {
		code = prefix + "-" + code
	}
	if !IsValidCode(code) {
		return "", errors.Errorf("generated code %q has invalid format", code)
	}
	return code, nil
}
