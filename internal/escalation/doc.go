// Package escalation raises the urgency of tasks as their deadlines approach.
//
// A scan flips is_urgent from false to true on every open task whose
// deadline falls within the configured threshold. The flip is one
// set-based store update, so the quadrant derived from the flags moves
// with it (for example from "schedule" to "do"). The engine never clears
// is_urgent.
//
// The Scheduler runs a scan once at start and then on a fixed interval.
// Scans never overlap: a tick that arrives while a scan is still running
// is skipped and logged.
package escalation
