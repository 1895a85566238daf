// Package recording stores MEMR acquisitions in single-file SQLite databases.
//
// A recording holds the acquisition sample rate, the numeric experiment
// settings, the microphone calibration used during the run, and one row per
// epoch carrying its elicitor polarity, elicitor level, and raw microphone
// samples. Files are written once by the acquisition side (or by ImportWAV)
// and read by the MEMR summary pipeline.
package recording
