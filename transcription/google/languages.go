package google

import "slices"

// languages is the set of codes Speech-to-Text v2 supports across regions.
// Individual models support subsets of it.
var languages = []string{
	"af-ZA", "am-ET", "ar-EG", "as-IN", "ast-ES", "az-AZ", "be-BY", "bg-BG",
	"bn-BD", "bn-IN", "bs-BA", "ca-ES", "ceb-PH", "ckb-IQ", "cmn-Hans-CN",
	"cmn-Hant-TW", "cs-CZ", "cy-GB", "da-DK", "de-DE", "el-GR", "en-AU",
	"en-GB", "en-IN", "en-US", "es-419", "es-ES", "es-US", "et-EE", "eu-ES",
	"fa-IR", "ff-SN", "fi-FI", "fil-PH", "fr-CA", "fr-FR", "ga-IE", "gl-ES",
	"gu-IN", "ha-NG", "hi-IN", "hr-HR", "hu-HU", "hy-AM", "id-ID", "ig-NG",
	"is-IS", "it-IT", "iw-IL", "ja-JP", "jv-ID", "ka-GE", "kam-KE", "kea-CV",
	"kk-KZ", "km-KH", "kn-IN", "ko-KR", "ky-KG", "lb-LU", "lg-UG", "ln-CD",
	"lo-LA", "lt-LT", "luo-KE", "lv-LV", "mi-NZ", "mk-MK", "ml-IN", "mn-MN",
	"mr-IN", "ms-MY", "mt-MT", "my-MM", "ne-NP", "nl-NL", "no-NO", "nso-ZA",
	"ny-MW", "oc-FR", "om-ET", "or-IN", "pa-Guru-IN", "pl-PL", "ps-AF", "pt-BR",
	"pt-PT", "ro-RO", "ru-RU", "rup-BG", "sd-IN", "si-LK", "sk-SK", "sl-SI",
	"sn-ZW", "so-SO", "sq-AL", "sr-RS", "su-ID", "sv-SE", "sw", "sw-KE",
	"ta-IN", "te-IN", "tg-TJ", "th-TH", "tr-TR", "uk-UA", "umb-AO", "ur-PK",
	"uz-UZ", "vi-VN", "wo-SN", "xh-ZA", "yo-NG", "yue-Hant-HK", "zu-ZA",
}

// Languages returns the supported language codes.
func Languages() []string {
	return slices.Clone(languages)
}
