// Package bot contains the notification dispatcher. This file provides the
// localized confirmation strings sent back for chat commands, built on
// golang.org/x/text message catalogs. German is the default locale of the
// deployment; English is the fallback.
package bot

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. The key doubles as the English text.
const (
	msgRegistered   = "Successfully registered!"
	msgUnregistered = "Successfully unregistered!"
)

// supported lists the locales with translations; the first entry wins when
// matching fails.
var supported = []language.Tag{
	language.German,
	language.English,
}

func init() {
	message.SetString(language.German, msgRegistered, "Erfolgreich registriert!")
	message.SetString(language.German, msgUnregistered, "Erfolgreich abgemeldet!")
	message.SetString(language.English, msgRegistered, msgRegistered)
	message.SetString(language.English, msgUnregistered, msgUnregistered)
}

// Localizer renders user-facing confirmation strings for one locale.
type Localizer struct {
	printer *message.Printer
}

// NewLocalizer builds a Localizer for the given BCP 47 locale string.
// Unknown or unsupported locales fall back to the default (German).
func NewLocalizer(locale string) *Localizer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = supported[0]
	}
	matcher := language.NewMatcher(supported)
	matched, _, _ := matcher.Match(tag)
	return &Localizer{printer: message.NewPrinter(matched)}
}

// Registered returns the confirmation for a successful opt-in.
func (l *Localizer) Registered() string { return l.printer.Sprintf(msgRegistered) }

// Unregistered returns the confirmation for a successful opt-out.
func (l *Localizer) Unregistered() string { return l.printer.Sprintf(msgUnregistered) }
