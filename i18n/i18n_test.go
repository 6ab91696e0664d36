package i18n

import (
	"reflect"
	"testing"
)

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{EnvLocale, "LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		t.Setenv(env, "")
	}
}

func restore(t *testing.T) {
	t.Helper()
	oldPo, oldActive := po, active
	t.Cleanup(func() { po, active = oldPo, oldActive })
}

func TestDetectLanguagePriorityAndNormalization(t *testing.T) {
	t.Run("DATRANS_LOCALE wins", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv(EnvLocale, "ru")
		t.Setenv("LANGUAGE", "de_DE.UTF-8")

		if got := detectLanguage(); got != "ru" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "ru")
		}
	})

	t.Run("LANGUAGE before LC_ALL", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "ru_RU.UTF-8:en_US")
		t.Setenv("LC_ALL", "de_DE.UTF-8")

		if got := detectLanguage(); got != "ru_RU" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "ru_RU")
		}
	})

	t.Run("C and POSIX are skipped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "C")
		t.Setenv("LC_ALL", "POSIX")
		t.Setenv("LC_MESSAGES", "fr_FR.UTF-8")

		if got := detectLanguage(); got != "fr_FR" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "fr_FR")
		}
	})

	t.Run("falls back to en", func(t *testing.T) {
		clearLocaleEnv(t)
		if got := detectLanguage(); got != "en" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "en")
		}
	})
}

func TestResolveFallsBackToBaseLanguage(t *testing.T) {
	tests := map[string]string{
		"ru":    "ru",
		"ru_RU": "ru",
		"ru-RU": "ru",
		"de_DE": "de_DE",
		"en":    "en",
	}
	for in, want := range tests {
		if got := resolve(in); got != want {
			t.Errorf("resolve(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAvailable(t *testing.T) {
	if got := Available(); !reflect.DeepEqual(got, []string{"ru"}) {
		t.Fatalf("Available() = %q", got)
	}
}

func TestTAndNFallbackWhenUninitialized(t *testing.T) {
	restore(t)
	po = nil

	if got := T("Hello"); got != "Hello" {
		t.Fatalf("T fallback = %q, want %q", got, "Hello")
	}
	if got := N("file", "files", 1); got != "file" {
		t.Fatalf("N singular fallback = %q, want %q", got, "file")
	}
	if got := N("file", "files", 2); got != "files" {
		t.Fatalf("N plural fallback = %q, want %q", got, "files")
	}
}

func TestInitLoadsEmbeddedCatalog(t *testing.T) {
	restore(t)

	Init("ru_RU")
	if Locale() != "ru" {
		t.Fatalf("Locale() = %q, want ru", Locale())
	}
	if got := T("Translation complete!"); got != "Перевод завершён!" {
		t.Fatalf("T() = %q", got)
	}
	got := N("%d translation left records unfinished; rerun with --memory to resume cheaply",
		"%d translations left records unfinished; rerun with --memory to resume cheaply", 5)
	if want := "%d переводов оставили незавершённые записи; повторите запуск с --memory, чтобы продолжить"; got != want {
		t.Fatalf("N(5) = %q, want %q", got, want)
	}

	Init("de")
	if got := T("Translation complete!"); got != "Translation complete!" {
		t.Fatalf("T() without catalog = %q", got)
	}
}

func TestInitDetectsFromEnvironment(t *testing.T) {
	restore(t)
	clearLocaleEnv(t)
	t.Setenv(EnvLocale, "ru")

	Init("")
	if got := T("Shutting down..."); got != "Завершение работы..." {
		t.Fatalf("T() = %q", got)
	}
}
