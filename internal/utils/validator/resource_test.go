package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceID(t *testing.T) {
	assert.NoError(t, ResourceID("a1b2c3d4e5f60718293a4b5c6d7e8f90"))
	assert.NoError(t, ResourceID("scan_2024-01"))

	for _, bad := range []string{"", "../etc/passwd", "a b", strings.Repeat("x", 65)} {
		err := ResourceID(bad)
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), bad)
	}
}

func TestLocale(t *testing.T) {
	assert.NoError(t, Locale(""))
	assert.NoError(t, Locale("en_GB"))
	assert.NoError(t, Locale("zh-Hant-TW"))
	assert.Error(t, Locale("not a locale"))
}
