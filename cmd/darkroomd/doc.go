// Command darkroomd is the background daemon: it watches the incoming photo
// folder, reconstructs sessions around marker photos and migrates each
// session into the per-patient archive.
package main
