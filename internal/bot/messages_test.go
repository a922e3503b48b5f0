package bot

import "testing"

func TestLocalizer_German(t *testing.T) {
	l := NewLocalizer("de")
	if got := l.Registered(); got != "Erfolgreich registriert!" {
		t.Fatalf("Registered() = %q", got)
	}
	if got := l.Unregistered(); got != "Erfolgreich abgemeldet!" {
		t.Fatalf("Unregistered() = %q", got)
	}
}

func TestLocalizer_English(t *testing.T) {
	l := NewLocalizer("en")
	if got := l.Registered(); got != "Successfully registered!" {
		t.Fatalf("Registered() = %q", got)
	}
	if got := l.Unregistered(); got != "Successfully unregistered!" {
		t.Fatalf("Unregistered() = %q", got)
	}
}

func TestLocalizer_UnknownLocaleFallsBackToGerman(t *testing.T) {
	for _, locale := range []string{"fr", "xx-klingon", ""} {
		l := NewLocalizer(locale)
		if got := l.Registered(); got != "Erfolgreich registriert!" {
			t.Fatalf("locale %q: Registered() = %q", locale, got)
		}
	}
}

func TestLocalizer_RegionalVariantMatchesBase(t *testing.T) {
	l := NewLocalizer("de-AT")
	if got := l.Unregistered(); got != "Erfolgreich abgemeldet!" {
		t.Fatalf("Unregistered() = %q", got)
	}
}
