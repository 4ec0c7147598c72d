package project

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/normalization"
)

var titleCaser = cases.Title(language.English)

// label derives "Apache Commons" from "APACHE_COMMONS" unless overridden.
func label(value string, overrides map[string]string) string {
	if l, ok := overrides[value]; ok {
		return l
	}
	return titleCaser.String(strings.ReplaceAll(strings.ToLower(value), "_", " "))
}

// Language is a JVM source language with its own source root.
type Language string

const (
	LanguageJava   Language = "JAVA"
	LanguageGroovy Language = "GROOVY"
	LanguageScala  Language = "SCALA"
	LanguageKotlin Language = "KOTLIN"
)

// Languages lists every language in canonical order.
var Languages = []Language{LanguageJava, LanguageGroovy, LanguageScala, LanguageKotlin}

var languageSet = normalization.Members("language", normalization.Identifier, "", Languages...)

// ParseLanguage resolves a case-insensitive language name.
func ParseLanguage(raw string) (Language, bool) { return languageSet.Lookup(raw) }

func (l Language) Label() string { return label(string(l), nil) }

// Dir is the source set directory name, e.g. "kotlin" in src/main/kotlin.
func (l Language) Dir() string { return strings.ToLower(string(l)) }

func (l Language) order() int { return languageSet.Index(l) }

// TestingFramework selects the unit test library and runner.
type TestingFramework string

const (
	TestingNone   TestingFramework = "NONE"
	TestingTestNG TestingFramework = "TESTNG"
	TestingJUnit  TestingFramework = "JUNIT"
)

var TestingFrameworks = []TestingFramework{TestingNone, TestingTestNG, TestingJUnit}

var testingSet = normalization.Members("testing framework", normalization.Identifier, TestingNone, TestingFrameworks...)

// ParseTestingFramework resolves a case-insensitive name; empty input yields NONE.
func ParseTestingFramework(raw string) (TestingFramework, bool) {
	if strings.TrimSpace(raw) == "" {
		return TestingNone, true
	}
	return testingSet.Lookup(raw)
}

func (t TestingFramework) Label() string {
	return label(string(t), map[string]string{"TESTNG": "TestNG", "JUNIT": "JUnit"})
}

// LoggingFramework selects the logging library wired into the main class.
type LoggingFramework string

const (
	LoggingNone           LoggingFramework = "NONE"
	LoggingSLF4J          LoggingFramework = "SLF4J"
	LoggingLog4j          LoggingFramework = "LOG4J"
	LoggingApacheCommons  LoggingFramework = "APACHE_COMMONS"
	LoggingLogbackClassic LoggingFramework = "LOGBACK_CLASSIC"
)

var LoggingFrameworks = []LoggingFramework{LoggingNone, LoggingSLF4J, LoggingLog4j, LoggingApacheCommons, LoggingLogbackClassic}

var loggingSet = normalization.Members("logging framework", normalization.Identifier, LoggingNone, LoggingFrameworks...)

// ParseLoggingFramework resolves a case-insensitive name; empty input yields NONE.
func ParseLoggingFramework(raw string) (LoggingFramework, bool) {
	if strings.TrimSpace(raw) == "" {
		return LoggingNone, true
	}
	return loggingSet.Lookup(raw)
}

func (l LoggingFramework) Label() string {
	return label(string(l), map[string]string{"SLF4J": "SLF4J", "LOG4J": "Log4j 2", "APACHE_COMMONS": "Apache Commons Logging"})
}

// License selects the LICENSE file.
type License string

const (
	LicenseNone    License = "NONE"
	LicenseApache2 License = "APACHE2"
	LicenseGPL2    License = "GPL2"
	LicenseMIT     License = "MIT"
	LicenseWTFPL   License = "WTFPL"
)

var Licenses = []License{LicenseNone, LicenseApache2, LicenseGPL2, LicenseMIT, LicenseWTFPL}

var licenseSet = normalization.Members("license", normalization.Identifier, LicenseNone, Licenses...)

// ParseLicense resolves a case-insensitive name; empty input yields NONE.
func ParseLicense(raw string) (License, bool) {
	if strings.TrimSpace(raw) == "" {
		return LicenseNone, true
	}
	return licenseSet.Lookup(raw)
}

func (l License) Label() string {
	return label(string(l), map[string]string{
		"APACHE2": "Apache License 2.0",
		"GPL2":    "GNU GPL v2.0",
		"MIT":     "MIT License",
		"WTFPL":   "WTFPL",
	})
}
