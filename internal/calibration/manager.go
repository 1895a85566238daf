package calibration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"cfts/internal/config"
	"cfts/internal/logging"
)

// KeySeparator joins a loader's qualified name and an entry name in choice keys.
const KeySeparator = "::"

// Choice is one selectable calibration.
type Choice struct {
	// Display is "<entry> (<label>)".
	Display string `json:"display"`
	// Key is "<loader>::<entry>" and is what Load expects.
	Key    string `json:"key"`
	Loader string `json:"loader"`
	Entry  string `json:"entry"`
}

// ChoiceKey builds the composite key for entry served by loader.
func ChoiceKey(loader, entry string) string {
	return loader + KeySeparator + entry
}

// ParseKey splits a composite key on the first separator.
func ParseKey(key string) (loader, entry string, err error) {
	loader, entry, ok := strings.Cut(key, KeySeparator)
	if !ok {
		return "", "", fmt.Errorf("%w: key %q has no %q separator", ErrLookup, key, KeySeparator)
	}
	return loader, entry, nil
}

// Manager aggregates loaders for one kind of calibration.
type Manager struct {
	kind    string
	catalog Catalog
	loaders map[string]Loader
	logger  *slog.Logger
}

// NewManager returns an empty manager resolving loader names through catalog.
func NewManager(kind string, catalog Catalog, logger *slog.Logger) *Manager {
	return &Manager{
		kind:    kind,
		catalog: catalog,
		loaders: make(map[string]Loader),
		logger:  logging.NewComponentLogger(logger, kind+"-calibration"),
	}
}

// Kind names the calibrations this manager serves, e.g. "starship".
func (m *Manager) Kind() string { return m.kind }

// Register resolves name through the catalog and stores the loader, replacing
// any earlier registration under the same name.
func (m *Manager) Register(name string) error {
	loader, err := m.catalog.Resolve(name)
	if err != nil {
		return err
	}
	m.Add(loader)
	m.logger.Debug("calibration loader registered", logging.String(logging.FieldLoader, name))
	return nil
}

// Add stores an already constructed loader under its own name.
func (m *Manager) Add(loader Loader) {
	m.loaders[loader.Name()] = loader
}

// Unregistered returns catalog loaders that this manager has not registered.
func (m *Manager) Unregistered() []string {
	var names []string
	for _, name := range m.catalog.Names() {
		if _, ok := m.loaders[name]; !ok {
			names = append(names, name)
		}
	}
	return names
}

// Source describes where a registered loader reads from.
type Source struct {
	Loader string `json:"loader"`
	Dir    string `json:"dir,omitempty"`
}

// Sources lists the registered loaders with their directories, when the
// loader is backed by one.
func (m *Manager) Sources() []Source {
	sources := make([]Source, 0, len(m.loaders))
	for _, name := range m.Loaders() {
		src := Source{Loader: name}
		if d, ok := m.loaders[name].(interface{ Dir() string }); ok {
			src.Dir = d.Dir()
		}
		sources = append(sources, src)
	}
	return sources
}

// Loaders returns the registered loader names in sorted order.
func (m *Manager) Loaders() []string {
	names := make([]string, 0, len(m.loaders))
	for name := range m.loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Loader returns the loader registered under name.
func (m *Manager) Loader(name string) (Loader, bool) {
	loader, ok := m.loaders[name]
	return loader, ok
}

// ListChoices enumerates every entry of every registered loader. Entries whose
// names contain the key separator cannot round-trip through Load and are
// skipped with a warning.
func (m *Manager) ListChoices(ctx context.Context) ([]Choice, error) {
	var choices []Choice
	seen := make(map[string]string)
	for _, name := range m.Loaders() {
		loader := m.loaders[name]
		entries, err := loader.ListChoices(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s choices: %w", name, err)
		}
		for _, entry := range entries {
			if strings.Contains(entry, KeySeparator) {
				logging.WarnWithContext(m.logger, "calibration entry skipped", "calibration_entry_skipped",
					logging.String(logging.FieldLoader, name),
					logging.String("entry", entry),
					logging.String(logging.FieldErrorHint, "rename the entry so it does not contain \"::\""),
				)
				continue
			}
			display := fmt.Sprintf("%s (%s)", entry, loader.Label())
			key := ChoiceKey(name, entry)
			if prior, ok := seen[display]; ok {
				return nil, fmt.Errorf("%w: %q from %s and %s", ErrDuplicateChoice, display, prior, key)
			}
			seen[display] = key
			choices = append(choices, Choice{Display: display, Key: key, Loader: name, Entry: entry})
		}
	}
	return choices, nil
}

// Load routes key to the owning loader. Loader errors are returned unchanged.
func (m *Manager) Load(ctx context.Context, key string) (Calibration, error) {
	name, entry, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	loader, ok := m.loaders[name]
	if !ok {
		return nil, fmt.Errorf("%w: no %s loader registered as %q", ErrLookup, m.kind, name)
	}
	return loader.Load(ctx, entry)
}

// Managers holds the two managers an experiment selects from.
type Managers struct {
	Starship   *Manager
	Microphone *Manager
}

// NewManagers builds the starship and microphone managers from the loader
// lists in cfg.
func NewManagers(cfg *config.Config, catalog Catalog, logger *slog.Logger) (*Managers, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrResolution)
	}
	starship := NewManager("starship", catalog, logger)
	for _, name := range cfg.Calibration.StarshipLoaders {
		if err := starship.Register(name); err != nil {
			return nil, fmt.Errorf("starship loaders: %w", err)
		}
	}
	microphone := NewManager("microphone", catalog, logger)
	for _, name := range cfg.Calibration.MicrophoneLoaders {
		if err := microphone.Register(name); err != nil {
			return nil, fmt.Errorf("microphone loaders: %w", err)
		}
	}
	return &Managers{Starship: starship, Microphone: microphone}, nil
}
