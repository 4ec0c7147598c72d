// Package git initializes version control for rendered project skeletons.
//
// Only local operations are performed: the repository is created on disk and
// an "origin" remote is registered. Nothing is fetched or pushed.
package git
