package render

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// GradleVersion is pinned in the generated wrapper block.
const GradleVersion = "8.10.2"

// DynamicVersion lets Gradle resolve the newest release.
const DynamicVersion = "+"

// Scope is a Gradle dependency configuration. Order matters for output.
type Scope int

const (
	ScopeImplementation Scope = iota
	ScopeRuntimeOnly
	ScopeTestImplementation
	ScopeTestRuntimeOnly
	ScopeClasspath
)

var scopeNames = [...]string{"implementation", "runtimeOnly", "testImplementation", "testRuntimeOnly", "classpath"}

func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

// Dependency is a single Maven coordinate in a scope.
type Dependency struct {
	Scope   Scope
	Group   string
	Name    string
	Version string
}

func dep(scope Scope, group, name string) Dependency {
	return Dependency{Scope: scope, Group: group, Name: name, Version: DynamicVersion}
}

// Gradle renders "scope 'group:name:version'".
func (d Dependency) Gradle() string {
	return fmt.Sprintf("%s '%s:%s:%s'", d.Scope, d.Group, d.Name, d.Version)
}

func compareDependencies(a, b Dependency) int {
	return cmp.Or(cmp.Compare(a.Scope, b.Scope), cmp.Compare(a.Group, b.Group), cmp.Compare(a.Name, b.Name))
}

// Repository is a Gradle repository declaration.
type Repository string

const MavenCentral Repository = "mavenCentral()"

// DependencyContext is a repositories + dependencies pair, used for both
// the buildscript block and the project itself.
type DependencyContext struct {
	repositories []Repository
	dependencies []Dependency
}

// Add registers dependencies (deduplicated by scope, group and name).
// Any dependency implies Maven Central.
func (c *DependencyContext) Add(deps ...Dependency) {
	for _, d := range deps {
		if !slices.ContainsFunc(c.dependencies, func(e Dependency) bool { return compareDependencies(d, e) == 0 }) {
			c.dependencies = append(c.dependencies, d)
		}
		c.AddRepository(MavenCentral)
	}
}

func (c *DependencyContext) AddRepository(r Repository) {
	if !slices.Contains(c.repositories, r) {
		c.repositories = append(c.repositories, r)
	}
}

func (c *DependencyContext) Empty() bool {
	return len(c.repositories) == 0 && len(c.dependencies) == 0
}

// Dependencies returns a sorted copy.
func (c *DependencyContext) Dependencies() []Dependency {
	out := slices.Clone(c.dependencies)
	slices.SortFunc(out, compareDependencies)
	return out
}

func (c *DependencyContext) write(w *CodeWriter) {
	if len(c.repositories) > 0 {
		repos := slices.Clone(c.repositories)
		slices.Sort(repos)
		w.Open("repositories")
		for _, r := range repos {
			w.Line("%s", r)
		}
		w.Close()
	}
	if len(c.dependencies) > 0 {
		w.Open("dependencies")
		for _, d := range c.Dependencies() {
			w.Line("%s", d.Gradle())
		}
		w.Close()
	}
}

// BuildFile models build.gradle.
type BuildFile struct {
	Script     DependencyContext
	Project    DependencyContext
	Plugins    []string
	Group      string
	Version    string
	TestRunner string // "useTestNG()", "useJUnit()" or empty
}

// AddPlugin appends a plugin id once, keeping first-seen order.
func (b *BuildFile) AddPlugin(id string) {
	if !slices.Contains(b.Plugins, id) {
		b.Plugins = append(b.Plugins, id)
	}
}

// Render produces the build.gradle text.
func (b *BuildFile) Render() (string, error) {
	w := NewCodeWriter()
	if !b.Script.Empty() {
		w.Open("buildscript")
		b.Script.write(w)
		w.Close()
	}
	for _, p := range b.Plugins {
		w.Line("apply plugin: '%s'", p)
	}
	w.Blank()
	b.Project.write(w)
	w.Blank()
	w.Line("group = '%s'", groovyEscape(b.Group))
	w.Line("version = '%s'", groovyEscape(b.Version))
	w.Open("wrapper")
	w.Line("gradleVersion = '%s'", GradleVersion)
	w.Close()
	if b.TestRunner != "" {
		w.Open("test")
		w.Line("%s", b.TestRunner)
		w.Close()
	}
	return w.String()
}

// groovyEscape makes s safe inside a single-quoted Groovy string. Control
// characters without a short escape become \uXXXX.
func groovyEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '\'':
			b.WriteRune('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if unicode.IsControl(r) {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
