package calibration

import "errors"

var (
	// ErrResolution reports a loader name missing from the catalog.
	ErrResolution = errors.New("calibration loader resolution failed")
	// ErrLookup reports a choice key that does not route to a registered loader.
	ErrLookup = errors.New("calibration lookup failed")
	// ErrNotFound reports a named entry whose calibration file does not exist.
	ErrNotFound = errors.New("calibration file not found")
	// ErrNoCalibration reports a microphone entry without any dated calibration directory.
	ErrNoCalibration = errors.New("no calibration found")
	// ErrParse reports a probe-tube file that does not follow the EPL export layout.
	ErrParse = errors.New("calibration parse error")
	// ErrMalformed reports microphone sensitivity data that is missing or unusable.
	ErrMalformed = errors.New("malformed calibration data")
	// ErrDuplicateChoice reports two entries that render to the same display name.
	ErrDuplicateChoice = errors.New("duplicate calibration choice")
)
