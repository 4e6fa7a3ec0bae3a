// Package session reconstructs shooting sessions from an unordered stream of
// classified photos.
//
// The Assembler is the only component with real state: it buffers ordinary
// photos until a trigger photo arrives, then selects the buffered photos
// captured inside the look-back window and closes them into a Session bound
// to the trigger's patient id and date. Capacity is enforced at close time,
// never by dropping buffered photos. The package is deliberately free of
// filesystem and clock dependencies beyond the injectable now function, so
// the window/count policies are testable in isolation.
package session
