// Package hardware describes the acquisition channels available on the rig
// and derives the starship assemblies wired to them.
//
// The IO manifest is a TOML file listing named channels. A starship is
// defined by three channels sharing an ID: starship_<ID>_microphone (analog
// input) plus starship_<ID>_primary and starship_<ID>_secondary (analog
// outputs).
package hardware
