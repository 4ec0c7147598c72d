package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

func TestDefaultRegistry_IsComplete(t *testing.T) {
	r := DefaultRegistry()
	require.NoError(t, r.Validate())
	assert.Len(t, AllKeys(), len(project.Languages)*len(project.TestingFrameworks)*len(project.LoggingFrameworks))
}

func TestRegistry_ValidateReportsGap(t *testing.T) {
	r := DefaultRegistry()
	gap := CapabilityKey{Language: project.LanguageScala, Testing: project.TestingJUnit, Logging: project.LoggingLog4j}
	r.mu.Lock()
	delete(r.entries, gap)
	r.mu.Unlock()

	err := r.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCapability))
	assert.False(t, errors.CanRetry(err))
	assert.Contains(t, err.(*errors.ClassifiedError).Context()["missing"], gap.String())
}

func TestRegistry_EveryCombinationRenders(t *testing.T) {
	r := DefaultRegistry()
	spec := testSpec(t, project.RawSpecification{Name: "combo", Namespace: "org.example", Languages: []string{"JAVA"}})

	for _, key := range AllKeys() {
		fn, ok := r.Lookup(key)
		require.True(t, ok, key.String())

		files, err := fn(spec)
		require.NoError(t, err, key.String())
		want := 1
		if key.Testing != project.TestingNone {
			want = 2
		}
		require.Len(t, files, want, key.String())
		for _, f := range files {
			assert.NotEmpty(t, f.Content, f.Path)
			assert.Contains(t, string(f.Content), "package org.example", f.Path)
		}
	}
}

func TestBoilerplate_JavaWithSLF4J(t *testing.T) {
	fn, ok := DefaultRegistry().Lookup(CapabilityKey{
		Language: project.LanguageJava, Testing: project.TestingTestNG, Logging: project.LoggingSLF4J,
	})
	require.True(t, ok)
	spec := testSpec(t, project.RawSpecification{Name: "myapp", Namespace: "com.test", Languages: []string{"JAVA"}})

	files, err := fn(spec)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "src/main/java/com/test/JavaApp.java", files[0].Path)
	assert.Equal(t, `package com.test;

import org.slf4j.Logger;
import org.slf4j.LoggerFactory;

public class JavaApp {
    private static final Logger LOG = LoggerFactory.getLogger(JavaApp.class);

    public static void main(String[] args) {
        LOG.info(greeting());
    }

    static String greeting() {
        return "Hello from myapp";
    }
}
`, string(files[0].Content))

	assert.Equal(t, "src/test/java/com/test/JavaAppTest.java", files[1].Path)
	assert.Contains(t, string(files[1].Content), "import org.testng.annotations.Test;")
	assert.Contains(t, string(files[1].Content), "import static org.testng.Assert.assertEquals;")
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"a \"b\" $c"`, quote(`a "b" $c`, false))
	assert.Equal(t, `"a \$c\\"`, quote(`a $c\`, true))
	assert.Equal(t, `"x\r\ny\tz"`, quote("x\r\ny\tz", false))
	assert.Equal(t, `"a\u0000b\u001bc"`, quote("a\x00b\x1bc", false))
}
