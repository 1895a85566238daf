// Package launch prepares and starts an experiment session.
//
// A settings file names the paradigm, the starship, and the starship and
// microphone calibrations to use. Resolve checks each selection against the
// IO manifest and the calibration managers and produces a Plan. The Runner
// takes the rig lock, snapshots the plan and the calibration sources into a
// session directory, and hands control to the external experiment command.
package launch
