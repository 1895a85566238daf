// Package preflight checks that the rig is ready to launch a session.
//
// The CLI "cfts check" command runs RunAll and renders the results. The
// launch command runs the same checks before taking the rig lock so a doomed
// session fails before anything is written.
package preflight
