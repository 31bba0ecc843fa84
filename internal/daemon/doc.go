// Package daemon coordinates the long-running contentops process.
//
// It ties the worker pool, the HTTP listener and the pending sweep into a
// single lifecycle with flock-based locking to prevent multiple instances
// sharing one data directory. Construction of the services themselves lives
// in daemonrun; this package only starts, stops and reports on them.
package daemon
