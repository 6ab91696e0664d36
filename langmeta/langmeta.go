// Package langmeta holds language metadata: English and native names used in
// provider prompts and CLI listings.
package langmeta

import (
	"sort"
	"strings"
)

// Meta describes one language.
type Meta struct {
	English string
	Native  string
	Flag    string
}

// Registry maps language codes to their metadata. Regional variants not
// listed here resolve to their base language.
var Registry = map[string]Meta{
	"af":    {English: "Afrikaans", Native: "Afrikaans", Flag: "🇿🇦"},
	"am":    {English: "Amharic", Native: "አማርኛ", Flag: "🇪🇹"},
	"ar":    {English: "Arabic", Native: "العربية", Flag: "🇸🇦"},
	"az":    {English: "Azerbaijani", Native: "Azərbaycanca", Flag: "🇦🇿"},
	"be":    {English: "Belarusian", Native: "Беларуская", Flag: "🇧🇾"},
	"bg":    {English: "Bulgarian", Native: "Български", Flag: "🇧🇬"},
	"bn":    {English: "Bengali", Native: "বাংলা", Flag: "🇧🇩"},
	"bs":    {English: "Bosnian", Native: "Bosanski", Flag: "🇧🇦"},
	"ca":    {English: "Catalan", Native: "Català", Flag: "🇪🇸"},
	"cs":    {English: "Czech", Native: "Čeština", Flag: "🇨🇿"},
	"cy":    {English: "Welsh", Native: "Cymraeg", Flag: "🇬🇧"},
	"da":    {English: "Danish", Native: "Dansk", Flag: "🇩🇰"},
	"de":    {English: "German", Native: "Deutsch", Flag: "🇩🇪"},
	"el":    {English: "Greek", Native: "Ελληνικά", Flag: "🇬🇷"},
	"en":    {English: "English", Native: "English", Flag: "🇺🇸"},
	"es":    {English: "Spanish", Native: "Español", Flag: "🇪🇸"},
	"et":    {English: "Estonian", Native: "Eesti", Flag: "🇪🇪"},
	"eu":    {English: "Basque", Native: "Euskara", Flag: "🇪🇸"},
	"fa":    {English: "Persian", Native: "فارسی", Flag: "🇮🇷"},
	"fi":    {English: "Finnish", Native: "Suomi", Flag: "🇫🇮"},
	"fr":    {English: "French", Native: "Français", Flag: "🇫🇷"},
	"ga":    {English: "Irish", Native: "Gaeilge", Flag: "🇮🇪"},
	"gl":    {English: "Galician", Native: "Galego", Flag: "🇪🇸"},
	"gu":    {English: "Gujarati", Native: "ગુજરાતી", Flag: "🇮🇳"},
	"he":    {English: "Hebrew", Native: "עברית", Flag: "🇮🇱"},
	"hi":    {English: "Hindi", Native: "हिन्दी", Flag: "🇮🇳"},
	"hr":    {English: "Croatian", Native: "Hrvatski", Flag: "🇭🇷"},
	"hu":    {English: "Hungarian", Native: "Magyar", Flag: "🇭🇺"},
	"hy":    {English: "Armenian", Native: "Հայերեն", Flag: "🇦🇲"},
	"id":    {English: "Indonesian", Native: "Bahasa Indonesia", Flag: "🇮🇩"},
	"is":    {English: "Icelandic", Native: "Íslenska", Flag: "🇮🇸"},
	"it":    {English: "Italian", Native: "Italiano", Flag: "🇮🇹"},
	"ja":    {English: "Japanese", Native: "日本語", Flag: "🇯🇵"},
	"ka":    {English: "Georgian", Native: "ქართული", Flag: "🇬🇪"},
	"kk":    {English: "Kazakh", Native: "Қазақ тілі", Flag: "🇰🇿"},
	"km":    {English: "Khmer", Native: "ខ្មែរ", Flag: "🇰🇭"},
	"ko":    {English: "Korean", Native: "한국어", Flag: "🇰🇷"},
	"lo":    {English: "Lao", Native: "ລາວ", Flag: "🇱🇦"},
	"lt":    {English: "Lithuanian", Native: "Lietuvių", Flag: "🇱🇹"},
	"lv":    {English: "Latvian", Native: "Latviešu", Flag: "🇱🇻"},
	"mk":    {English: "Macedonian", Native: "Македонски", Flag: "🇲🇰"},
	"ml":    {English: "Malayalam", Native: "മലയാളം", Flag: "🇮🇳"},
	"mn":    {English: "Mongolian", Native: "Монгол", Flag: "🇲🇳"},
	"mr":    {English: "Marathi", Native: "मराठी", Flag: "🇮🇳"},
	"ms":    {English: "Malay", Native: "Bahasa Melayu", Flag: "🇲🇾"},
	"mt":    {English: "Maltese", Native: "Malti", Flag: "🇲🇹"},
	"my":    {English: "Burmese", Native: "မြန်မာ", Flag: "🇲🇲"},
	"nb":    {English: "Norwegian Bokmal", Native: "Norsk bokmål", Flag: "🇳🇴"},
	"ne":    {English: "Nepali", Native: "नेपाली", Flag: "🇳🇵"},
	"nl":    {English: "Dutch", Native: "Nederlands", Flag: "🇳🇱"},
	"nn":    {English: "Norwegian Nynorsk", Native: "Norsk nynorsk", Flag: "🇳🇴"},
	"no":    {English: "Norwegian", Native: "Norsk", Flag: "🇳🇴"},
	"pa":    {English: "Punjabi", Native: "ਪੰਜਾਬੀ", Flag: "🇮🇳"},
	"pl":    {English: "Polish", Native: "Polski", Flag: "🇵🇱"},
	"ps":    {English: "Pashto", Native: "پښتو", Flag: "🇦🇫"},
	"pt":    {English: "Portuguese", Native: "Português", Flag: "🇵🇹"},
	"pt-BR": {English: "Brazilian Portuguese", Native: "Português (Brasil)", Flag: "🇧🇷"},
	"ro":    {English: "Romanian", Native: "Română", Flag: "🇷🇴"},
	"ru":    {English: "Russian", Native: "Русский", Flag: "🇷🇺"},
	"si":    {English: "Sinhala", Native: "සිංහල", Flag: "🇱🇰"},
	"sk":    {English: "Slovak", Native: "Slovenčina", Flag: "🇸🇰"},
	"sl":    {English: "Slovenian", Native: "Slovenščina", Flag: "🇸🇮"},
	"sq":    {English: "Albanian", Native: "Shqip", Flag: "🇦🇱"},
	"sr":    {English: "Serbian", Native: "Српски", Flag: "🇷🇸"},
	"sv":    {English: "Swedish", Native: "Svenska", Flag: "🇸🇪"},
	"sw":    {English: "Swahili", Native: "Kiswahili", Flag: "🇹🇿"},
	"ta":    {English: "Tamil", Native: "தமிழ்", Flag: "🇮🇳"},
	"te":    {English: "Telugu", Native: "తెలుగు", Flag: "🇮🇳"},
	"th":    {English: "Thai", Native: "ไทย", Flag: "🇹🇭"},
	"tr":    {English: "Turkish", Native: "Türkçe", Flag: "🇹🇷"},
	"uk":    {English: "Ukrainian", Native: "Українська", Flag: "🇺🇦"},
	"ur":    {English: "Urdu", Native: "اردو", Flag: "🇵🇰"},
	"uz":    {English: "Uzbek", Native: "O'zbek", Flag: "🇺🇿"},
	"vi":    {English: "Vietnamese", Native: "Tiếng Việt", Flag: "🇻🇳"},
	"xh":    {English: "Xhosa", Native: "isiXhosa", Flag: "🇿🇦"},
	"yo":    {English: "Yoruba", Native: "Yorùbá", Flag: "🇳🇬"},
	"zh":    {English: "Chinese", Native: "中文", Flag: "🇨🇳"},
	"zh-CN": {English: "Simplified Chinese", Native: "简体中文", Flag: "🇨🇳"},
	"zh-TW": {English: "Traditional Chinese", Native: "繁體中文", Flag: "🇹🇼"},
	"zu":    {English: "Zulu", Native: "isiZulu", Flag: "🇿🇦"},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Lookup returns the metadata for lang, accepting variants like pt_BR and
// falling back to the base language. ok is false for unknown codes.
func Lookup(lang string) (Meta, bool) {
	if m, ok := Registry[lang]; ok {
		return m, true
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m, true
	}
	if base, _, found := strings.Cut(normalized, "-"); found {
		if m, ok := Registry[base]; ok {
			return m, true
		}
	}
	return Meta{}, false
}

// Resolve is Lookup with unknown codes passed through as their own name.
func Resolve(lang string) Meta {
	if m, ok := Lookup(lang); ok {
		return m
	}
	return Meta{English: lang, Native: lang}
}

// EnglishName returns the English name of lang, or lang itself when unknown.
func EnglishName(lang string) string {
	return Resolve(lang).English
}

// Codes returns the registered language codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(Registry))
	for c := range Registry {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
