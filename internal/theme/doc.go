// Package theme owns a visitor's light/dark preference.
//
// A Store resolves the starting mode from persisted state or the system
// color-scheme signal, persists explicit choices, and follows the signal
// live while no explicit choice is active.
//
//	signal := theme.NewBroadcaster()
//	signal.Set(theme.ModeDark)
//	store := theme.NewStore(storage, signal)
//	defer store.Close()
//
//	store.Toggle()         // light, explicit, persisted
//	store.Reset()          // back to following the signal
//	signal.Set(theme.ModeLight)
package theme
