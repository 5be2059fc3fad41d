package azure

import "slices"

// languages are the locales the fast transcription API accepts.
var languages = []string{
	"de-DE", "en-AU", "en-CA", "en-GB", "en-IN", "en-US", "es-ES", "es-MX",
	"fr-CA", "fr-FR", "hi-IN", "it-IT", "ja-JP", "ko-KR", "pt-BR", "zh-CN",
}

// Languages returns the supported language codes.
func Languages() []string {
	return slices.Clone(languages)
}
