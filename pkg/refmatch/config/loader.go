package config

import (
	"fmt"

	"github.com/cognicore/refmatch/pkg/refmatch/stoplist"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	SettingsPath string
	StoplistPath string // overrides the stoplist named in the settings file
}

// Components holds all loaded configuration components
type Components struct {
	Settings Settings
	Stoplist *stoplist.Manager
}

// Load reads all configuration files and returns initialized components.
// Missing paths fall back to the defaults.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Settings: Default()}

	if l.SettingsPath != "" {
		s, err := Load(l.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		comp.Settings = s
	}

	path := l.StoplistPath
	if path == "" {
		path = comp.Settings.Stoplist
	}
	if path != "" {
		sl, err := LoadStoplist(path)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Stoplist = stoplist.NewManager(sl.Terms)
	} else {
		comp.Stoplist = stoplist.Default()
	}

	return comp, nil
}
