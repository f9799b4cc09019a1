// Command brd runs the bug report daemon and its operator console.
//
// Without a subcommand brd behaves like "brd run": it loads configuration,
// starts listening for reports and reads operator commands from stdin.
// "brd submit" is a small client for sending one report, and "brd config"
// writes or prints configuration.
package main
