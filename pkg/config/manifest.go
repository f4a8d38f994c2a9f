package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CalendarManifest lists calendars to create at startup.
type CalendarManifest struct {
	Calendars []ManifestCalendar `yaml:"calendars"`
	Current   string             `yaml:"current"`
}

// ManifestCalendar describes one calendar. Import optionally points at an
// .ics file whose events are loaded into it.
type ManifestCalendar struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
	Import   string `yaml:"import"`
}

// LoadManifest reads a YAML manifest. An empty path yields an empty manifest.
func LoadManifest(path string) (*CalendarManifest, error) {
	if path == "" {
		return &CalendarManifest{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar manifest: %w", err)
	}
	return ParseManifest(raw)
}

// ParseManifest decodes manifest YAML and checks calendar names.
func ParseManifest(raw []byte) (*CalendarManifest, error) {
	var m CalendarManifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse calendar manifest: %w", err)
	}
	seen := make(map[string]bool, len(m.Calendars))
	for i, c := range m.Calendars {
		if c.Name == "" {
			return nil, fmt.Errorf("calendar manifest: entry %d has no name", i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("calendar manifest: duplicate calendar %q", c.Name)
		}
		seen[c.Name] = true
	}
	if m.Current != "" && !seen[m.Current] {
		return nil, fmt.Errorf("calendar manifest: current calendar %q is not listed", m.Current)
	}
	return &m, nil
}
