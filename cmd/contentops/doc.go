// Command contentops is the operator CLI.
//
// Commands open the configured database directly and share it with a running
// contentopsd: work they enqueue is picked up by the daemon's worker lanes.
// Only `contentops daemon` runs the lanes and the HTTP listener in-process.
package main
