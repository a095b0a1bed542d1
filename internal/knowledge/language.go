package knowledge

import (
	"log"

	"github.com/abadojack/whatlanggo"
)

// LanguageUnknown is the sentinel used when detection fails.
const LanguageUnknown = "unknown"

// DetectLanguage returns the ISO 639-1 code of the dominant language in text,
// or "unknown". Detection is best-effort and never fails the caller.
func DetectLanguage(logger *log.Logger, text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() || info.Lang == -1 {
		if logger != nil {
			logger.Printf("failed to detect language, falling back to %q", LanguageUnknown)
		}
		return LanguageUnknown
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return LanguageUnknown
	}
	return code
}
