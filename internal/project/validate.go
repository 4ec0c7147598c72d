package project

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/git"
)

// Reason identifies which validation rule rejected a specification.
type Reason string

const (
	ReasonNameLength       Reason = "name_length"
	ReasonNamespaceLength  Reason = "namespace_length"
	ReasonNamespacePattern Reason = "namespace_pattern"
	ReasonVersionLength    Reason = "version_length"
	ReasonUnknownTesting   Reason = "unknown_testing"
	ReasonUnknownLogging   Reason = "unknown_logging"
	ReasonUnknownLicense   Reason = "unknown_license"
	ReasonNoLanguages      Reason = "no_languages"
	ReasonUnknownLanguage  Reason = "unknown_language"
	ReasonRemoteURL        Reason = "remote_url"
)

// Length bounds, inclusive, counted in characters.
const (
	NameMinLength      = 3
	NameMaxLength      = 200
	NamespaceMinLength = 1
	NamespaceMaxLength = 10000
	VersionMaxLength   = 200
)

// namespacePattern is a dot-delimited sequence of JVM identifiers.
var namespacePattern = regexp.MustCompile(`^([a-zA-Z_$][a-zA-Z0-9_$]*\.)*[a-zA-Z_$][a-zA-Z0-9_$]*$`)

func reject(field string, reason Reason, format string, args ...any) error {
	return errors.ValidationError(fmt.Sprintf(format, args...)).
		WithContext("field", field).
		WithContext("reason", string(reason)).
		Build()
}

// ReasonOf extracts the rule that produced a validation error.
func ReasonOf(err error) (Reason, bool) {
	c, ok := errors.AsClassified(err)
	if !ok || c.Category() != errors.CategoryValidation {
		return "", false
	}
	r, ok := c.Context().GetString("reason")
	return Reason(r), ok
}

// Validate checks raw in a fixed order and returns the first violation.
func Validate(raw RawSpecification) (Specification, error) {
	var spec Specification

	if n := utf8.RuneCountInString(raw.Name); n < NameMinLength || n > NameMaxLength {
		return spec, reject("name", ReasonNameLength, "name must be %d-%d characters, got %d", NameMinLength, NameMaxLength, n)
	}

	if n := utf8.RuneCountInString(raw.Namespace); n < NamespaceMinLength || n > NamespaceMaxLength {
		return spec, reject("namespace", ReasonNamespaceLength, "namespace must be %d-%d characters, got %d", NamespaceMinLength, NamespaceMaxLength, n)
	}
	if !namespacePattern.MatchString(raw.Namespace) {
		return spec, reject("namespace", ReasonNamespacePattern, "namespace %q is not a dot-separated identifier", raw.Namespace)
	}

	version := DefaultVersion
	if raw.Version != nil {
		version = *raw.Version
	}
	if n := utf8.RuneCountInString(version); n > VersionMaxLength {
		return spec, reject("version", ReasonVersionLength, "version must be at most %d characters, got %d", VersionMaxLength, n)
	}

	testing, ok := ParseTestingFramework(raw.Testing)
	if !ok {
		return spec, reject("testing", ReasonUnknownTesting, "unknown testing framework %q", raw.Testing)
	}
	logging, ok := ParseLoggingFramework(raw.Logging)
	if !ok {
		return spec, reject("logging", ReasonUnknownLogging, "unknown logging framework %q", raw.Logging)
	}
	license, ok := ParseLicense(raw.License)
	if !ok {
		return spec, reject("license", ReasonUnknownLicense, "unknown license %q", raw.License)
	}

	languages, err := parseLanguages(raw.Languages)
	if err != nil {
		return spec, err
	}

	remote := strings.TrimSpace(raw.RemoteURL)
	if remote != "" {
		if err := git.ValidateRemote(remote); err != nil {
			return spec, reject("remote_url", ReasonRemoteURL, "remote URL %q is not a git endpoint", remote)
		}
	}

	return Specification{
		Name:      raw.Name,
		Namespace: raw.Namespace,
		Version:   version,
		Testing:   testing,
		Logging:   logging,
		License:   license,
		Languages: languages,
		VCS:       VCS{Init: raw.Git || remote != "", RemoteURL: remote},
	}, nil
}

// parseLanguages resolves, de-duplicates and orders the requested languages.
func parseLanguages(raw []string) ([]Language, error) {
	var out []Language
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		l, ok := ParseLanguage(r)
		if !ok {
			return nil, reject("languages", ReasonUnknownLanguage, "unknown language %q", r)
		}
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nil, reject("languages", ReasonNoLanguages, "at least one language is required")
	}
	slices.SortFunc(out, func(a, b Language) int { return a.order() - b.order() })
	return out, nil
}

// SplitList splits a comma-separated form value, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
