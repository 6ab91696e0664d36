// Package i18n localizes the messages of the datrans CLI.
//
// Catalogs are gettext .po files embedded from locales/{lang}/LC_MESSAGES/
// datrans.po. The locale comes from --locale, DATRANS_LOCALE or the usual
// gettext variables; a territory locale such as ru_RU falls back to the ru
// catalog.
//
//	i18n.Init("") // detect
//	fmt.Println(i18n.T("Translation complete!"))
//	fmt.Printf(i18n.N("%d record", "%d records", n), n)
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "datrans"

// EnvLocale overrides the gettext environment variables.
const EnvLocale = "DATRANS_LOCALE"

var (
	po     *gotext.Locale
	active string
)

// Init loads the catalog for lang, detecting the locale when lang is empty.
// Without a matching catalog T and N return their arguments.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}
	active = resolve(lang)

	po = gotext.NewLocaleFSWithPath(active, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Locale returns the locale chosen by the last Init: the catalog name when
// one matched, the requested locale otherwise.
func Locale() string {
	return active
}

// Available lists the embedded catalogs.
func Available() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && hasCatalog(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

// T translates msgid.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms chosen for n.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// resolve maps lang to an embedded catalog name: exact match first, then the
// language without its territory (pt-BR, pt_BR -> pt).
func resolve(lang string) string {
	lang = strings.ReplaceAll(lang, "-", "_")
	if hasCatalog(lang) {
		return lang
	}
	if base, _, ok := strings.Cut(lang, "_"); ok && hasCatalog(base) {
		return base
	}
	return lang
}

func hasCatalog(lang string) bool {
	if lang == "" {
		return false
	}
	_, err := fs.Stat(locales, path.Join("locales", lang, "LC_MESSAGES", domain+".po"))
	return err == nil
}

// detectLanguage reads DATRANS_LOCALE, then LANGUAGE, LC_ALL, LC_MESSAGES
// and LANG in gettext order.
func detectLanguage() string {
	for _, env := range []string{EnvLocale, "LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE is a colon-separated list
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// ru_RU.UTF-8 -> ru_RU
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
