package hardware

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Direction of a channel relative to the acquisition hardware.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Channel is one named hardware channel.
type Channel struct {
	Name        string    `toml:"name" json:"name"`
	Direction   Direction `toml:"direction" json:"direction"`
	Device      string    `toml:"device" json:"device,omitempty"`
	SampleRate  float64   `toml:"fs" json:"fs,omitempty"`
	Description string    `toml:"description" json:"description,omitempty"`
}

// ChannelFinder is the manifest capability the starship lister needs.
type ChannelFinder interface {
	FindAll(pattern *regexp.Regexp) []Channel
}

// Manifest is the parsed IO manifest.
type Manifest struct {
	Path     string    `toml:"-"`
	Channels []Channel `toml:"channel"`
}

// LoadManifest reads and validates the TOML manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrManifest, path)
		}
		return nil, fmt.Errorf("read io manifest: %w", err)
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	manifest.Path = path
	return manifest, nil
}

// ParseManifest decodes manifest TOML.
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	seen := make(map[string]struct{}, len(manifest.Channels))
	for i := range manifest.Channels {
		ch := &manifest.Channels[i]
		ch.Name = strings.TrimSpace(ch.Name)
		if ch.Name == "" {
			return nil, fmt.Errorf("%w: channel %d has no name", ErrManifest, i+1)
		}
		if _, dup := seen[ch.Name]; dup {
			return nil, fmt.Errorf("%w: channel %q defined twice", ErrManifest, ch.Name)
		}
		seen[ch.Name] = struct{}{}
		ch.Direction = Direction(strings.ToLower(strings.TrimSpace(string(ch.Direction))))
		switch ch.Direction {
		case DirectionInput, DirectionOutput:
		default:
			return nil, fmt.Errorf("%w: channel %q direction %q must be input or output", ErrManifest, ch.Name, ch.Direction)
		}
	}
	return &manifest, nil
}

// FindAll returns channels whose names match pattern, in manifest order.
func (m *Manifest) FindAll(pattern *regexp.Regexp) []Channel {
	var out []Channel
	for _, ch := range m.Channels {
		if pattern.MatchString(ch.Name) {
			out = append(out, ch)
		}
	}
	return out
}

const sampleManifestHeader = `# cfts IO manifest
#
# One [[channel]] per acquisition channel. A starship is complete when
# starship_<ID>_microphone, starship_<ID>_primary and starship_<ID>_secondary
# are all present. Replace device and fs with the values for this rig.

`

// SampleManifest renders a manifest defining one complete starship per ID.
func SampleManifest(device string, sampleRate float64, ids ...string) ([]byte, error) {
	manifest := Manifest{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || strings.Contains(id, "_") {
			return nil, fmt.Errorf("%w: starship ID %q must be non-empty and contain no underscore", ErrManifest, id)
		}
		for _, role := range RequiredRoles {
			direction := DirectionOutput
			if role == RoleMicrophone {
				direction = DirectionInput
			}
			manifest.Channels = append(manifest.Channels, Channel{
				Name:        ChannelName(id, role),
				Direction:   direction,
				Device:      device,
				SampleRate:  sampleRate,
				Description: fmt.Sprintf("starship %s %s", id, role),
			})
		}
	}
	body, err := toml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode sample manifest: %w", err)
	}
	return append([]byte(sampleManifestHeader), body...), nil
}

// CreateSampleManifest writes SampleManifest to path. An existing file is
// left untouched and reported with created=false.
func CreateSampleManifest(path, device string, sampleRate float64, ids ...string) (created bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat io manifest: %w", err)
	}
	data, err := SampleManifest(device, sampleRate, ids...)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write io manifest: %w", err)
	}
	return true, nil
}
