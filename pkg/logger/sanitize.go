package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

// sensitiveQueryKeys are query parameters whose values never reach the logs.
// Contact search terms are names and phone numbers.
var sensitiveQueryKeys = map[string]struct{}{
	"password": {},
	"token":    {},
	"email":    {},
	"phone":    {},
	"search":   {},
	"q":        {},
}

// SanitizedEmail masks an email address for logging (e.g. "u***@*******.com")
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	if len(local) > 1 {
		local = local[:1] + strings.Repeat("*", len(local)-1)
	}

	// Keep only the TLD readable
	labels := strings.Split(domain, ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = strings.Repeat("*", len(labels[i]))
	}

	return local + "@" + strings.Join(labels, ".")
}

// SanitizedPhone keeps the country prefix and the last two digits of a phone
// number (e.g. "+1********23")
func SanitizedPhone(phone string) string {
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 5 {
		return "[redacted-phone]"
	}
	masked := digits[:1] + strings.Repeat("*", len(digits)-3) + digits[len(digits)-2:]
	if strings.HasPrefix(phone, "+") {
		return "+" + masked
	}
	return masked
}

// RedactedAttr returns value under key outside production and a placeholder
// in production
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQuery returns rawQuery with the values of sensitive parameters
// replaced. A query that cannot be parsed is redacted as a whole.
func SanitizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "[REDACTED]"
	}

	for key := range values {
		if _, ok := sensitiveQueryKeys[strings.ToLower(key)]; ok {
			values[key] = []string{"[REDACTED]"}
		}
	}
	return values.Encode()
}
