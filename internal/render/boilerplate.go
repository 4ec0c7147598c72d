package render

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"unicode"

	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

// File is one rendered file, addressed relative to the project root with '/' separators.
type File struct {
	Path    string
	Content []byte
	Mode    fs.FileMode
}

// sourceSet is what a language generator needs to emit its classes.
type sourceSet struct {
	namespace string
	class     string
	greeting  string
	logger    *loggerBinding // nil when logging is NONE
	test      *testBinding   // nil when testing is NONE
}

type languageGenerator struct {
	ext  string
	main func(s sourceSet) (string, error)
	test func(s sourceSet) (string, error)
}

var generators = map[project.Language]languageGenerator{
	project.LanguageJava:   {ext: "java", main: javaMain, test: javaTest},
	project.LanguageGroovy: {ext: "groovy", main: groovyMain, test: groovyTest},
	project.LanguageScala:  {ext: "scala", main: scalaMain, test: scalaTest},
	project.LanguageKotlin: {ext: "kt", main: kotlinMain, test: kotlinTest},
}

// ClassName is the main class of a language's source root. Each language
// gets its own name so several roots can share one package.
func ClassName(l project.Language) string {
	return l.Label() + "App"
}

// boilerplateFor returns the capability for one (language, testing, logging) triple.
func boilerplateFor(key CapabilityKey) (BoilerplateFunc, bool) {
	gen, ok := generators[key.Language]
	if !ok {
		return nil, false
	}
	var logger *loggerBinding
	if key.Logging != project.LoggingNone {
		b, ok := loggerBindings[key.Logging]
		if !ok {
			return nil, false
		}
		logger = &b
	}
	var test *testBinding
	if key.Testing != project.TestingNone {
		b, ok := testBindings[key.Testing]
		if !ok {
			return nil, false
		}
		test = &b
	}

	return func(spec project.Specification) ([]File, error) {
		s := sourceSet{
			namespace: spec.Namespace,
			class:     ClassName(key.Language),
			greeting:  "Hello from " + spec.Name,
			logger:    logger,
			test:      test,
		}
		dir := key.Language.Dir()
		pkg := spec.PackagePath()

		mainSrc, err := gen.main(s)
		if err != nil {
			return nil, err
		}
		files := []File{{
			Path:    path.Join("src/main", dir, pkg, s.class+"."+gen.ext),
			Content: []byte(mainSrc),
			Mode:    0o644,
		}}
		if test != nil {
			testSrc, err := gen.test(s)
			if err != nil {
				return nil, err
			}
			files = append(files, File{
				Path:    path.Join("src/test", dir, pkg, s.class+"Test."+gen.ext),
				Content: []byte(testSrc),
				Mode:    0o644,
			})
		}
		return files, nil
	}, true
}

// quote renders a double-quoted JVM string literal. Groovy and Kotlin
// interpolate '$' inside double quotes, so it is escaped for them.
func quote(s string, escapeDollar bool) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '$':
			if escapeDollar {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		default:
			if unicode.IsControl(r) {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func writeImports(w *CodeWriter, format string, names ...string) {
	names = slices.DeleteFunc(slices.Clone(names), func(s string) bool { return s == "" })
	if len(names) == 0 {
		return
	}
	slices.Sort(names)
	names = slices.Compact(names)
	w.Blank()
	for _, n := range names {
		w.Line(format, n)
	}
}

func (s sourceSet) loggerImports(withType bool) []string {
	if s.logger == nil {
		return nil
	}
	if withType {
		return []string{s.logger.typeImport, s.logger.factoryImport}
	}
	return []string{s.logger.factoryImport}
}

func javaMain(s sourceSet) (string, error) {
	w := NewCodeWriter()
	w.Line("package %s;", s.namespace)
	writeImports(w, "import %s;", s.loggerImports(true)...)
	w.Blank()
	w.Open("public class %s", s.class)
	if s.logger != nil {
		w.Line("private static final %s LOG = %s;", s.logger.typeName, fmt.Sprintf(s.logger.factory, s.class+".class"))
	}
	w.Open("public static void main(String[] args)")
	if s.logger != nil {
		w.Line("LOG.info(greeting());")
	} else {
		w.Line("System.out.println(greeting());")
	}
	w.Close()
	w.Open("static String greeting()")
	w.Line("return %s;", quote(s.greeting, false))
	w.Close()
	w.Close()
	return w.String()
}

func javaTest(s sourceSet) (string, error) {
	w := NewCodeWriter()
	w.Line("package %s;", s.namespace)
	w.Blank()
	w.Line("import static %s;", s.test.assertion)
	w.Blank()
	w.Line("import %s;", s.test.annotation)
	w.Blank()
	w.Open("public class %sTest", s.class)
	w.Annotation("@Test")
	w.Open("public void greetingNamesProject()")
	w.Line("assertEquals(%s.greeting(), %s);", s.class, quote(s.greeting, false))
	w.Close()
	w.Close()
	return w.String()
}

func groovyMain(s sourceSet) (string, error) {
	w := NewCodeWriter()
	w.Line("package %s", s.namespace)
	writeImports(w, "import %s", s.loggerImports(true)...)
	w.Blank()
	w.Open("class %s", s.class)
	if s.logger != nil {
		w.Line("private static final %s LOG = %s", s.logger.typeName, fmt.Sprintf(s.logger.factory, s.class))
	}
	w.Open("static void main(String[] args)")
	if s.logger != nil {
		w.Line("LOG.info(greeting())")
	} else {
		w.Line("println greeting()")
	}
	w.Close()
	w.Open("static String greeting()")
	w.Line("%s", quote(s.greeting, true))
	w.Close()
	w.Close()
	return w.String()
}

func groovyTest(s sourceSet) (string, error) {
	w := NewCodeWriter()
	w.Line("package %s", s.namespace)
	w.Blank()
	w.Line("import static %s", s.test.assertion)
	w.Blank()
	w.Line("import %s", s.test.annotation)
	w.Blank()
	w.Open("class %sTest", s.class)
	w.Annotation("@Test")
	w.Open("void greetingNamesProject()")
	w.Line("assertEquals(%s.greeting(), %s)", s.class, quote(s.greeting, true))
	w.Close()
	w.Close()
	return w.String()
}

func scalaMain(s sourceSet) (string, error) {
	w := NewCodeWriter()
	w.Line("package %s", s.namespace)
	writeImports(w, "import %s", s.loggerImports(false)...)
	w.Blank()
	w.Open("object %s", s.class)
	if s.logger != nil {
		w.Line("private val log = %s", fmt.Sprintf(s.logger.factory, "getClass"))
	}
	w.Open("def main(args: Array[String]): Unit =")
	if s.logger != nil {
		w.Line("log.info(greeting)")
	} else {
		w.Line("println(greeting)")
	}
	w.Close()
	w.Blank()
	w.Line("def greeting: String = %s", quote(s.greeting, false))
	w.Close()
	return w.String()
}

func scalaTest(s sourceSet) (string, error) {
	w := NewCodeWriter()
	w.Line("package %s", s.namespace)
	w.Blank()
	w.Line("import %s", s.test.annotation)
	w.Line("import %s", s.test.assertion)
	w.Blank()
	w.Open("class %sTest", s.class)
	w.Annotation("@Test")
	w.Open("def greetingNamesProject(): Unit =")
	w.Line("assertEquals(%s.greeting, %s)", s.class, quote(s.greeting, false))
	w.Close()
	w.Close()
	return w.String()
}

func kotlinMain(s sourceSet) (string, error) {
	w := NewCodeWriter()
	w.Line("package %s", s.namespace)
	writeImports(w, "import %s", s.loggerImports(false)...)
	w.Blank()
	w.Open("object %s", s.class)
	if s.logger != nil {
		w.Line("private val log = %s", fmt.Sprintf(s.logger.factory, s.class+"::class.java"))
	}
	w.Annotation("@JvmStatic")
	w.Open("fun main(args: Array<String>)")
	if s.logger != nil {
		w.Line("log.info(greeting())")
	} else {
		w.Line("println(greeting())")
	}
	w.Close()
	w.Blank()
	w.Line("fun greeting(): String = %s", quote(s.greeting, true))
	w.Close()
	return w.String()
}

func kotlinTest(s sourceSet) (string, error) {
	w := NewCodeWriter()
	w.Line("package %s", s.namespace)
	w.Blank()
	w.Line("import %s", s.test.annotation)
	w.Line("import %s", s.test.assertion)
	w.Blank()
	w.Open("class %sTest", s.class)
	w.Annotation("@Test")
	w.Open("fun greetingNamesProject()")
	w.Line("assertEquals(%s.greeting(), %s)", s.class, quote(s.greeting, true))
	w.Close()
	w.Close()
	return w.String()
}
