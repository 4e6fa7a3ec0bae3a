// Command darkroom is the operator CLI: inspect the session journal, show
// daemon status, manage configuration, or run the watcher in the foreground.
package main
