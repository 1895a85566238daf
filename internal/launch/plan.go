package launch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"cfts/internal/calibration"
	"cfts/internal/hardware"
	"cfts/internal/textutil"
)

// CalibrationRef records a resolved calibration selection.
type CalibrationRef struct {
	Key   string            `json:"key"`
	Attrs calibration.Attrs `json:"attrs"`
}

// Plan is everything the experiment needs to start a session.
type Plan struct {
	SessionID             string            `json:"session_id"`
	CreatedAt             time.Time         `json:"created_at"`
	Paradigm              string            `json:"paradigm"`
	Starship              hardware.Starship `json:"starship"`
	StarshipCalibration   CalibrationRef    `json:"starship_calibration"`
	MicrophoneCalibration CalibrationRef    `json:"microphone_calibration"`
	SessionDir            string            `json:"session_dir"`
	Parameters            map[string]any    `json:"parameters,omitempty"`
	SettingsPath          string            `json:"settings_path,omitempty"`
	Snapshots             map[string]string `json:"snapshots,omitempty"`
}

// Deps are the collaborators Resolve checks selections against.
type Deps struct {
	Manifest hardware.ChannelFinder
	Managers *calibration.Managers
	// SessionRoot is used when the settings do not name an output directory.
	SessionRoot string
	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// Resolve validates settings against the rig and loads both calibrations.
func Resolve(ctx context.Context, deps Deps, s *Settings) (*Plan, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if deps.Manifest == nil || deps.Managers == nil {
		return nil, fmt.Errorf("%w: resolve needs a manifest and calibration managers", ErrSettings)
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	newID := uuid.NewString
	if deps.NewID != nil {
		newID = deps.NewID
	}

	starships, err := hardware.DescribeStarships(deps.Manifest)
	if err != nil {
		return nil, err
	}
	var starship *hardware.Starship
	known := make([]string, 0, len(starships))
	for i := range starships {
		known = append(known, starships[i].ID)
		if starships[i].ID == s.Starship {
			starship = &starships[i]
		}
	}
	if starship == nil {
		return nil, fmt.Errorf("%w: %q (manifest defines %s)", ErrUnknownStarship, s.Starship, strings.Join(known, ", "))
	}

	starshipRef, err := resolveCalibration(ctx, deps.Managers.Starship, s.StarshipCalibration)
	if err != nil {
		return nil, fmt.Errorf("starship calibration: %w", err)
	}
	micRef, err := resolveCalibration(ctx, deps.Managers.Microphone, s.MicrophoneCalibration)
	if err != nil {
		return nil, fmt.Errorf("microphone calibration: %w", err)
	}

	root := s.OutputDir
	if root == "" {
		root = deps.SessionRoot
	}
	if root == "" {
		return nil, fmt.Errorf("%w: no output_dir and no session root configured", ErrSettings)
	}
	created := now().UTC()
	id := newID()
	plan := &Plan{
		SessionID:             id,
		CreatedAt:             created,
		Paradigm:              s.Paradigm,
		Starship:              *starship,
		StarshipCalibration:   starshipRef,
		MicrophoneCalibration: micRef,
		SessionDir:            filepath.Join(root, sessionDirName(created, s.Paradigm, id)),
		Parameters:            s.Parameters,
		SettingsPath:          s.Path,
	}
	return plan, nil
}

// resolveCalibration accepts either a composite key or a display name.
func resolveCalibration(ctx context.Context, mgr *calibration.Manager, selection string) (CalibrationRef, error) {
	key := selection
	if !strings.Contains(selection, calibration.KeySeparator) {
		choices, err := mgr.ListChoices(ctx)
		if err != nil {
			return CalibrationRef{}, err
		}
		key = ""
		for _, c := range choices {
			if c.Display == selection {
				key = c.Key
				break
			}
		}
		if key == "" {
			return CalibrationRef{}, fmt.Errorf("%w: no %s calibration named %q", calibration.ErrLookup, mgr.Kind(), selection)
		}
	}
	cal, err := mgr.Load(ctx, key)
	if err != nil {
		return CalibrationRef{}, err
	}
	return CalibrationRef{Key: key, Attrs: cal.Attrs()}, nil
}

func sessionDirName(t time.Time, paradigm, id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s %s %s", t.Format("20060102-150405"), textutil.SanitizeFileName(paradigm, "session"), short)
}

// WritePlan writes plan as indented JSON.
func WritePlan(path string, plan *Plan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

// ReadPlan reads a plan written by WritePlan.
func ReadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &plan, nil
}
