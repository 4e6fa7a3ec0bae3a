// Package daemon ties the watcher, classifier, assembler and migrator into
// a single lifecycle with flock-based locking to prevent multiple instances
// from fighting over one watch folder.
package daemon
