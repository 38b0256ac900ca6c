// internal/utils/validator/resource.go
package validator

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const maxResourceIDLength = 64

// ValidationError 验证错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ResourceID checks an id coming from a URL or the command line.
func ResourceID(id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "must not be empty"}
	}
	if len(id) > maxResourceIDLength {
		return &ValidationError{Field: "id", Message: fmt.Sprintf("longer than %d characters", maxResourceIDLength)}
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return &ValidationError{Field: "id", Message: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	return nil
}

// Locale accepts application locales such as "en_GB" or "pt-BR". An empty
// locale is valid and means the configured default.
func Locale(locale string) error {
	if locale == "" {
		return nil
	}
	if _, err := language.Parse(strings.ReplaceAll(locale, "_", "-")); err != nil {
		return &ValidationError{Field: "locale", Message: err.Error()}
	}
	return nil
}
