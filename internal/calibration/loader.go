package calibration

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cfts/internal/config"
)

const (
	// EPLProbeTubeLoaderName is the qualified name of the EPL probe-tube loader.
	EPLProbeTubeLoaderName = "calibration.EPLProbeTubeLoader"
	// CFTSMicrophoneLoaderName is the qualified name of the CFTS microphone loader.
	CFTSMicrophoneLoaderName = "calibration.CFTSMicrophoneLoader"
)

// Loader enumerates calibration entries from one source and loads them.
type Loader interface {
	// Label is the short source tag shown in display choices.
	Label() string
	// Name is the qualified name the loader was registered under.
	Name() string
	ListChoices(ctx context.Context) ([]string, error)
	Load(ctx context.Context, entry string) (Calibration, error)
}

// Factory builds a loader stamped with its qualified name.
type Factory func(qualname string) Loader

// Catalog maps qualified loader names to factories.
type Catalog map[string]Factory

// DefaultCatalog returns the loaders compiled into cfts with base directories
// taken from cfg.
func DefaultCatalog(cfg *config.Config) Catalog {
	return Catalog{
		EPLProbeTubeLoaderName: func(qualname string) Loader {
			return NewEPLProbeTubeLoader(qualname, cfg.Paths.ProbeTubeDir)
		},
		CFTSMicrophoneLoaderName: func(qualname string) Loader {
			return NewCFTSMicrophoneLoader(qualname, cfg.MicrophoneCalibrationDir())
		},
	}
}

// Resolve instantiates the loader registered under qualname.
func (c Catalog) Resolve(qualname string) (Loader, error) {
	factory, ok := c[qualname]
	if !ok || factory == nil {
		return nil, fmt.Errorf("%w: unknown loader %q", ErrResolution, qualname)
	}
	return factory(qualname), nil
}

// Names returns the catalog's loader names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// plainEntry reports whether entry names a single item inside a loader's
// directory rather than a path that could leave it.
func plainEntry(entry string) bool {
	return entry != "" && entry != "." && entry != ".." && !strings.ContainsAny(entry, `/\`)
}
