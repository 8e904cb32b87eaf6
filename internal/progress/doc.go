// Package progress defines the Reporter the benchmark coordinator notifies on
// state changes, phase boundaries and completed items.
//
// The coordinator only talks to the interface. Whether a run is attached to a
// terminal is decided by the command layer, which picks TerminalReporter,
// LogReporter or NopReporter accordingly.
package progress
