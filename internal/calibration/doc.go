// Package calibration discovers and loads acoustic calibrations for starship
// probe assemblies and microphones.
//
// A Loader enumerates the entries available from one source (an EPL probe-tube
// export directory, a CFTS microphone tree) and turns a chosen entry into a
// Calibration curve. A Manager aggregates several loaders under their
// qualified names and hands out display choices of the form
// "<entry> (<label>)" whose composite keys "<loader>::<entry>" route Load
// calls back to the right loader.
//
// Loaders are resolved through a Catalog built from configuration rather than
// by reflection, so the set of loaders is fixed at compile time and every
// factory captures its base directory explicitly.
package calibration
