// Package archive packages a rendered skeleton into a deterministic zip
// archive and computes its content digest. Unpack restores an archive onto
// disk and is the inverse of Packager.Package.
package archive
