// Package memr turns MEMR recordings into diagnostic figures.
//
// For each recording the pipeline averages the stimulus train, splits every
// epoch into elicitor repeats, and computes calibrated spectra of the
// elicitor and probe windows. The middle-ear muscle reflex is the change in
// probe level relative to the first repeat of the same epoch. Five figures
// are written to a directory named after the recording: stimulus train,
// elicitor PSD, probe waveform, probe PSD, and MEMR.
//
// RunBatch processes a list of recordings sequentially and reports a typed
// Outcome per file; one bad file never stops the batch.
package memr
