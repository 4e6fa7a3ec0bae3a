// Package migrate archives closed sessions into per-patient dated folders.
// Every file is copied to a verified backup before the first move, so a
// crash or partial failure never leaves the only copy at risk.
package migrate
