// Package main hosts the cfts operator CLI.
//
// The Cobra command tree resolves experiment settings against the rig's IO
// manifest and calibration stores, hands the resulting plan to the experiment
// command, and exposes the calibration choices, starships and recordings the
// operator selects from. Configuration is loaded lazily by commandContext so
// `config init` works before any config exists.
//
// Keep this package thin: behavior lives in internal/launch, internal/calibration
// and internal/hardware, and commands here only render it.
package main
