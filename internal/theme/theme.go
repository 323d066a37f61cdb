// Package theme holds the process-wide color theme preference.
//
// The preference is read once by Init and written back through the Store on
// every Set. Rendering code does not read it directly: it is applied to
// lipgloss, so adaptive colors pick the light or dark variant.
package theme

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/snakestats/internal/logger"
)

// Preference selects the color theme.
type Preference string

const (
	Light  Preference = "light"
	Dark   Preference = "dark"
	Device Preference = "device"
)

// Default is used when nothing is stored.
const Default = Device

var order = []Preference{Light, Dark, Device}

// Store persists the preference. Load returns "" when nothing is stored.
type Store interface {
	Load(ctx context.Context) (Preference, error)
	Save(ctx context.Context, p Preference) error
}

var (
	mu         sync.RWMutex
	current    = Default
	store      Store
	deviceDark bool
	detected   bool
	detector   = lipgloss.HasDarkBackground
)

// ParsePreference validates a preference name.
func ParsePreference(value string) (Preference, error) {
	p := Preference(strings.ToLower(strings.TrimSpace(value)))
	switch p {
	case Light, Dark, Device:
		return p, nil
	}
	return "", fmt.Errorf("unknown theme %q (use light, dark, or device)", value)
}

// Next returns the preference after p in the light, dark, device cycle.
func Next(p Preference) Preference {
	for i, candidate := range order {
		if candidate == p {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

// Init loads the stored preference, falling back to fallback (or Default) when
// nothing valid is stored, and applies it. A nil store keeps the preference in
// memory only. Load errors are logged and do not fail startup.
func Init(ctx context.Context, s Store, fallback Preference) Preference {
	if _, err := ParsePreference(string(fallback)); err != nil {
		fallback = Default
	}
	p := fallback
	if s != nil {
		stored, err := s.Load(ctx)
		switch {
		case err != nil:
			logger.Warn("failed to load theme preference: %v", err)
		case stored != "":
			if parsed, perr := ParsePreference(string(stored)); perr == nil {
				p = parsed
			} else {
				logger.Warn("ignoring stored theme: %v", perr)
			}
		}
	}

	mu.Lock()
	defer mu.Unlock()
	store = s
	current = p
	applyLocked()
	return p
}

// Current returns the active preference.
func Current() Preference {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// IsDark reports whether the active preference resolves to a dark background.
func IsDark() bool {
	mu.RLock()
	defer mu.RUnlock()
	return resolveLocked()
}

// Set makes p the active preference, applies it and persists it.
func Set(ctx context.Context, p Preference) error {
	if _, err := ParsePreference(string(p)); err != nil {
		return err
	}
	mu.Lock()
	current = p
	applyLocked()
	s := store
	mu.Unlock()

	if s == nil {
		return nil
	}
	if err := s.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to save theme preference: %w", err)
	}
	return nil
}

// SetDeviceDetector replaces the terminal background probe used by Device.
// It returns a function restoring the previous probe.
func SetDeviceDetector(fn func() bool) func() {
	mu.Lock()
	defer mu.Unlock()
	prev := detector
	detector = fn
	detected = false
	return func() {
		mu.Lock()
		defer mu.Unlock()
		detector = prev
		detected = false
	}
}

func resolveLocked() bool {
	switch current {
	case Light:
		return false
	case Dark:
		return true
	}
	return deviceDark
}

func applyLocked() {
	// Probe before the first override; afterwards lipgloss reports our value.
	if !detected {
		deviceDark = detector()
		detected = true
	}
	lipgloss.SetHasDarkBackground(resolveLocked())
}
