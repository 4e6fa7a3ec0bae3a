// Package watcher turns raw filesystem notifications into a stream of
// stabilized photo events. Cameras and sync clients write files in bursts,
// so nothing is emitted until a file's size and mtime survive a settle
// window unchanged.
package watcher
