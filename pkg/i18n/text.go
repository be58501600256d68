package i18n

import (
	"golang.org/x/text/language"
)

// DefaultLanguage is the fallback used when no translation matches.
const DefaultLanguage = "en"

// Text holds per-language variants of a single string, keyed by BCP 47
// language tag. Plan titles, notification messages and user-facing error
// messages are all stored server-side in this shape.
type Text map[string]string

// Resolve returns the best variant for the requested language.
//
// Resolution order: exact key match, golang.org/x/text matcher over the
// available tags, the default language, then any variant at all. An empty
// Text resolves to "".
func (t Text) Resolve(lang string) string {
	if len(t) == 0 {
		return ""
	}

	if v, ok := t[lang]; ok {
		return v
	}

	if tag, err := language.Parse(lang); err == nil {
		tags := make([]language.Tag, 0, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			parsed, err := language.Parse(k)
			if err != nil {
				continue
			}
			tags = append(tags, parsed)
			keys = append(keys, k)
		}
		if len(tags) > 0 {
			_, idx, conf := language.NewMatcher(tags).Match(tag)
			if conf > language.No {
				return t[keys[idx]]
			}
		}
	}

	if v, ok := t[DefaultLanguage]; ok {
		return v
	}

	for _, v := range t {
		return v
	}
	return ""
}
