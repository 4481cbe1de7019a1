// Package core defines the shared data model of the runtime: turns, session
// keys, memory records and the error taxonomy every component reports
// failures through. It has no dependencies on the orchestration layers so
// stores, providers and transports can all build on it without cycles.
package core
