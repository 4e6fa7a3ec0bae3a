// Package pipeline serializes photo handling: classify, assemble, migrate,
// one photo at a time in discovery order.
package pipeline
