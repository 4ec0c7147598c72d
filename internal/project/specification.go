package project

import (
	"regexp"
	"slices"
	"strings"
)

// DefaultVersion is used when the raw specification omits a version.
const DefaultVersion = "0.1"

// RawSpecification is unvalidated input as received from a caller.
type RawSpecification struct {
	Name      string   `json:"name"`
	Namespace string   `json:"namespace"`
	Version   *string  `json:"version,omitempty"`
	Testing   string   `json:"testing,omitempty"`
	Logging   string   `json:"logging,omitempty"`
	License   string   `json:"license,omitempty"`
	Languages []string `json:"languages"`
	Git       bool     `json:"git,omitempty"`
	RemoteURL string   `json:"remote_url,omitempty"`
}

// VCS describes optional repository initialization.
type VCS struct {
	Init      bool   `json:"init"`
	RemoteURL string `json:"remote_url,omitempty"`
}

// Specification is a validated, normalized project description. Values are
// only produced by Validate; treat them as immutable.
type Specification struct {
	Name      string           `json:"name"`
	Namespace string           `json:"namespace"`
	Version   string           `json:"version"`
	Testing   TestingFramework `json:"testing"`
	Logging   LoggingFramework `json:"logging"`
	License   License          `json:"license"`
	Languages []Language       `json:"languages"`
	VCS       VCS              `json:"vcs"`
}

// HasLanguage reports whether l was requested.
func (s Specification) HasLanguage(l Language) bool {
	return slices.Contains(s.Languages, l)
}

// PackagePath converts the namespace into a source directory path ("com/test").
func (s Specification) PackagePath() string {
	return strings.ReplaceAll(s.Namespace, ".", "/")
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// FileName is the project name made safe for use as a file or directory name.
func (s Specification) FileName() string {
	return SanitizeFileName(s.Name)
}

// ArchiveName is the download filename of the packaged skeleton.
func (s Specification) ArchiveName() string {
	return s.FileName() + ".zip"
}

// SanitizeFileName replaces every character outside [a-zA-Z0-9.-] with '_'.
func SanitizeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}
