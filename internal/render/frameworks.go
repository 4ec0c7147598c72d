package render

import "git.home.luguber.info/inful/skelbuilder/internal/project"

// configureLanguage adds the plugin and dependencies a language needs.
func configureLanguage(b *BuildFile, l project.Language) {
	switch l {
	case project.LanguageJava:
		b.AddPlugin("java")
	case project.LanguageGroovy:
		b.AddPlugin("groovy")
		b.Project.Add(dep(ScopeImplementation, "org.codehaus.groovy", "groovy-all"))
	case project.LanguageScala:
		b.AddPlugin("scala")
		b.Project.Add(dep(ScopeImplementation, "org.scala-lang", "scala-library"))
	case project.LanguageKotlin:
		b.AddPlugin("kotlin")
		b.Project.Add(dep(ScopeImplementation, "org.jetbrains.kotlin", "kotlin-stdlib"))
		b.Script.Add(dep(ScopeClasspath, "org.jetbrains.kotlin", "kotlin-gradle-plugin"))
	}
}

func configureTesting(b *BuildFile, t project.TestingFramework) {
	switch t {
	case project.TestingTestNG:
		b.Project.Add(dep(ScopeTestImplementation, "org.testng", "testng"))
		b.TestRunner = "useTestNG()"
	case project.TestingJUnit:
		b.Project.Add(dep(ScopeTestImplementation, "junit", "junit"))
		b.TestRunner = "useJUnit()"
	}
}

func configureLogging(b *BuildFile, l project.LoggingFramework) {
	switch l {
	case project.LoggingSLF4J:
		b.Project.Add(
			dep(ScopeImplementation, "org.slf4j", "slf4j-api"),
			dep(ScopeRuntimeOnly, "org.slf4j", "slf4j-simple"),
		)
	case project.LoggingLog4j:
		b.Project.Add(
			dep(ScopeImplementation, "org.apache.logging.log4j", "log4j-api"),
			dep(ScopeRuntimeOnly, "org.apache.logging.log4j", "log4j-core"),
		)
	case project.LoggingApacheCommons:
		b.Project.Add(dep(ScopeImplementation, "commons-logging", "commons-logging"))
	case project.LoggingLogbackClassic:
		b.Project.Add(dep(ScopeImplementation, "ch.qos.logback", "logback-classic"))
	}
}

// BuildDescriptor assembles the build.gradle model for spec.
func BuildDescriptor(spec project.Specification) *BuildFile {
	b := &BuildFile{Group: spec.Namespace, Version: spec.Version}
	for _, l := range spec.Languages {
		configureLanguage(b, l)
	}
	configureTesting(b, spec.Testing)
	configureLogging(b, spec.Logging)
	return b
}

// loggerBinding describes how source code obtains a logger.
type loggerBinding struct {
	typeImport    string
	factoryImport string
	typeName      string
	factory       string // fmt verb receives the class reference
}

var loggerBindings = map[project.LoggingFramework]loggerBinding{
	project.LoggingSLF4J:          {"org.slf4j.Logger", "org.slf4j.LoggerFactory", "Logger", "LoggerFactory.getLogger(%s)"},
	project.LoggingLogbackClassic: {"org.slf4j.Logger", "org.slf4j.LoggerFactory", "Logger", "LoggerFactory.getLogger(%s)"},
	project.LoggingLog4j:          {"org.apache.logging.log4j.Logger", "org.apache.logging.log4j.LogManager", "Logger", "LogManager.getLogger(%s)"},
	project.LoggingApacheCommons:  {"org.apache.commons.logging.Log", "org.apache.commons.logging.LogFactory", "Log", "LogFactory.getLog(%s)"},
}

// testBinding describes the annotation and assertion of a test framework.
type testBinding struct {
	annotation string
	assertion  string // fully qualified static member
}

var testBindings = map[project.TestingFramework]testBinding{
	project.TestingTestNG: {"org.testng.annotations.Test", "org.testng.Assert.assertEquals"},
	project.TestingJUnit:  {"org.junit.Test", "org.junit.Assert.assertEquals"},
}
