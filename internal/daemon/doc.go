// Package daemon coordinates the report listener lifecycle.
//
// A Daemon owns the shared report store for the life of the process and
// starts or stops listeners over it on operator request. Each start creates a
// fresh listener; each stop joins it completely before returning, so reports
// survive stop/start cycles and no write lands after Stop. A flock-based lock
// in the state directory keeps two daemons from serving the same state.
//
// Keep the network and file mechanics in their own packages (listener, dump,
// notifications); this package only sequences them and reports outcomes.
package daemon
