// Package workspace hands out private staging directories for build attempts.
//
// Every directory is created under a shared base with a recognisable prefix
// so that leftovers from a crashed process can be removed on startup.
package workspace
