// Package i18n provides the canned message catalog for user-facing text
// produced by the service itself (fallback answers, escalation notices).
//
// The pipeline passes the response language per call; there is no process
// global "current language". Unknown languages fall back to English.
package i18n

import (
	"fmt"
	"strings"
)

// Catalog languages.
const (
	LangEN = "en"
	LangHI = "hi"
)

// Message keys.
const (
	KeyFallbackAnswer   = "fallback_answer"
	KeyEscalationNotice = "escalation_notice"
	KeyGreeting         = "greeting"
	KeyNoSources        = "no_sources"
)

// messages stores all translations, keyed by language then message key.
var messages = map[string]map[string]string{}

func init() {
	messages[LangEN] = englishMessages()
	messages[LangHI] = hindiMessages()
}

// T returns the message for key in lang.
// Falls back to English when the language or key has no entry;
// returns the key itself when even English has no entry.
func T(lang, key string) string {
	lang = normalize(lang)
	if msg, ok := messages[lang][key]; ok {
		return msg
	}
	if msg, ok := messages[LangEN][key]; ok {
		return msg
	}
	return key
}

// Sprintf returns the translated and formatted message.
func Sprintf(lang, key string, args ...any) string {
	return fmt.Sprintf(T(lang, key), args...)
}

// Has reports whether the catalog carries lang natively.
func Has(lang string) bool {
	_, ok := messages[normalize(lang)]
	return ok
}

func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	// Strip a region subtag: "hi-IN" → "hi".
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
