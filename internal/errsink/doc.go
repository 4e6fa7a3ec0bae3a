// Package errsink routes problem files into the quarantine folder and keeps
// a journaled record of every incident. A failure of the sink itself is the
// one condition the daemon treats as fatal.
package errsink
