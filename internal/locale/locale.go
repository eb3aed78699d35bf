// Package locale resolves the request language and holds the server-side
// strings that are shown to end users.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale is one of the languages the assessment flow is translated into.
type Locale string

const (
	English            Locale = "en"
	SimplifiedChinese  Locale = "zh-CN"
	TraditionalChinese Locale = "zh-TW"
)

// Default is used whenever the request language is missing or unsupported.
const Default = English

// All lists the supported locales in display order.
func All() []Locale {
	return []Locale{English, SimplifiedChinese, TraditionalChinese}
}

func (l Locale) String() string { return string(l) }

// Parse maps a locale code (as used by the web client) to a Locale. Unknown
// codes resolve to Default.
func Parse(code string) Locale {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "zh-cn":
		return SimplifiedChinese
	case "zh-tw":
		return TraditionalChinese
	case "en":
		return English
	}
	return FromAcceptLanguage(code)
}

// FromAcceptLanguage picks the locale for an Accept-Language header value.
// Only the highest-weighted tag is considered. A Chinese tag must carry an
// explicit script (Hans/Hant) or region to select a Chinese locale; bare "zh"
// falls back to English along with every other language.
func FromAcceptLanguage(header string) Locale {
	if strings.TrimSpace(header) == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return Default
	}
	tag := tags[0]

	base, _ := tag.Base()
	if base.String() != "zh" {
		return Default
	}

	if script, conf := tag.Script(); conf == language.Exact {
		switch script.String() {
		case "Hans":
			return SimplifiedChinese
		case "Hant":
			return TraditionalChinese
		}
	}
	if region, conf := tag.Region(); conf == language.Exact {
		switch region.String() {
		case "CN", "SG":
			return SimplifiedChinese
		case "TW", "HK", "MO":
			return TraditionalChinese
		}
	}
	return Default
}
