// Package console implements the operator's line-oriented command loop.
//
// The loop reads one command per line and drives a Controller (normally a
// *daemon.Daemon). It never touches sockets or files itself. End of input is
// treated like "exit" so piping commands in works the same as typing them.
package console
