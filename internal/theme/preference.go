package theme

import (
	"errors"
	"fmt"
	"strings"
)

// Mode is the visual theme applied to the page.
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
)

// Source records whether the active mode was picked by the visitor or
// derived from the system color-scheme signal.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceSystem   Source = "system"
)

// Persisted keys, mirroring what the page stores in the browser.
const (
	KeyMode      = "theme"
	KeyUseSystem = "useSystemTheme"
)

// ErrInvalidMode is returned when a value is neither "light" nor "dark".
var ErrInvalidMode = errors.New("invalid theme mode")

// Preference is the resolved theme state of one visitor.
type Preference struct {
	Mode   Mode   `json:"mode"`
	Source Source `json:"source"`
}

// ParseMode accepts "light" or "dark" in any case.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeLight:
		return ModeLight, nil
	case ModeDark:
		return ModeDark, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
}

func (m Mode) Valid() bool {
	return m == ModeLight || m == ModeDark
}

// Opposite returns the other mode. Anything that is not dark flips to dark.
func (m Mode) Opposite() Mode {
	if m == ModeDark {
		return ModeLight
	}
	return ModeDark
}

// Resolve reads the persisted pair and the system signal and returns the
// preference a freshly loaded page would start with.
//
// An explicit mode wins only when it parses and the use-system flag is not
// "true". Storage read errors count as "nothing persisted". Without a system
// signal the fallback is light.
func Resolve(storage Storage, signal SystemSignal) Preference {
	if storage != nil {
		raw, ok, err := storage.Get(KeyMode)
		if err == nil && ok {
			useSystem, _, flagErr := storage.Get(KeyUseSystem)
			if mode, parseErr := ParseMode(raw); parseErr == nil && (flagErr != nil || useSystem != "true") {
				return Preference{Mode: mode, Source: SourceExplicit}
			}
		}
	}
	return Preference{Mode: systemMode(signal), Source: SourceSystem}
}

func systemMode(signal SystemSignal) Mode {
	if signal == nil {
		return ModeLight
	}
	mode, ok := signal.Current()
	if !ok || !mode.Valid() {
		return ModeLight
	}
	return mode
}
