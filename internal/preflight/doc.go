// Package preflight provides readiness checks for the paths, database and
// external backends contentops depends on.
//
// The CLI "contentops preflight" command runs RunAll and prints the table;
// the daemon runs the same checks at startup and logs failures without
// refusing to start, since backends may come up after the daemon.
//
// Backend checks are skipped for backends that are not configured.
package preflight
