package ocr

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when the locale cannot be mapped.
const DefaultLanguage = "eng"

// tesseract ships Chinese as two script-specific models
var scriptLanguages = map[string]string{
	"zh-Hans": "chi_sim",
	"zh-Hant": "chi_tra",
}

// LanguageCode maps an application locale such as "fr_FR" or "pt-BR" to
// the ISO 639-3 code recognition engines expect.
func LanguageCode(locale string) string {
	locale = strings.TrimSpace(strings.ReplaceAll(locale, "_", "-"))
	if locale == "" {
		return DefaultLanguage
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLanguage
	}

	base, conf := tag.Base()
	if conf == language.No {
		return DefaultLanguage
	}

	if base.String() == "zh" {
		script, _ := tag.Script()
		if code, ok := scriptLanguages["zh-"+script.String()]; ok {
			return code
		}
		return scriptLanguages["zh-Hans"]
	}

	code := base.ISO3()
	if code == "" || code == "und" {
		return DefaultLanguage
	}
	return code
}
