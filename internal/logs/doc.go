// Package logs reads the daemon's JSON log file for the CLI.
//
// Tail returns the last N matching records and the offset to continue from;
// Follow polls from that offset until its context ends. Lines that are not
// JSON are passed through as bare messages so a console-format file still
// tails.
package logs
