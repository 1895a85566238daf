package config

// SampleManifestName is the IO manifest file written beside a sample config.
const SampleManifestName = "io_manifest.toml"

const (
	defaultCalRoot             = "~/.local/share/cfts/calibration"
	defaultProbeTubeDir        = "~/.local/share/cfts/calibration/probe-tube"
	defaultStateDir            = "~/.local/share/cfts/state"
	defaultLogDir              = "~/.local/share/cfts/logs"
	defaultSessionRoot         = "~/.local/share/cfts/sessions"
	defaultIOManifest          = "~/.config/cfts/io_manifest.toml"
	defaultExperimentCommand   = "psi"
	defaultLockTimeoutSeconds  = 0
	defaultFigureFormat        = "pdf"
	defaultElicitorMinHz       = 500
	defaultElicitorMaxHz       = 50e3
	defaultProbeWindowScale    = 1.5
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultStarshipLoader      = "calibration.EPLProbeTubeLoader"
	defaultMicrophoneLoader    = "calibration.CFTSMicrophoneLoader"
	calRootEnvironmentVariable = "CAL_ROOT"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProbeTubeDir: defaultProbeTubeDir,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
		},
		Hardware: Hardware{
			IOManifest: defaultIOManifest,
		},
		Calibration: Calibration{
			StarshipLoaders:   []string{defaultStarshipLoader},
			MicrophoneLoaders: []string{defaultMicrophoneLoader},
		},
		Experiment: Experiment{
			Command:        defaultExperimentCommand,
			SessionRoot:    defaultSessionRoot,
			LockTimeoutSec: defaultLockTimeoutSeconds,
		},
		MEMR: MEMR{
			FigureFormat:     defaultFigureFormat,
			ElicitorMinHz:    defaultElicitorMinHz,
			ElicitorMaxHz:    defaultElicitorMaxHz,
			ProbeWindowScale: defaultProbeWindowScale,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
