// Package session carries per-run identity through context.Context.
//
// Launches and batch summaries stamp a run identifier, the recording being
// processed, and the pipeline stage so that loggers built with
// logging.WithContext tag every line consistently without threading extra
// parameters through the calibration, recording, and MEMR packages.
package session
