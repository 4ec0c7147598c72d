package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/skelbuilder/internal/archive"
	"git.home.luguber.info/inful/skelbuilder/internal/build"
	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
	"git.home.luguber.info/inful/skelbuilder/internal/version"
)

// run parses args like main does and executes the selected command.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	g := &Global{Level: new(slog.LevelVar), Out: &out}
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("skelbuilder"),
		kong.Bind(g),
		kong.Vars{"defaultVersion": project.DefaultVersion},
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = ctx.Run(g, cli)
	return out.String(), err
}

func TestGenerate_WritesArchiveAndPrintsDigest(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "dist", "demo.zip")
	extract := filepath.Join(dir, "src")

	stdout, err := run(t, "generate",
		"--name", "demo",
		"--namespace", "org.example",
		"--testing", "junit",
		"--language", "java,kotlin",
		"--license", "MIT",
		"--output", out,
		"--extract", extract)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	fields := strings.Fields(stdout)
	require.Len(t, fields, 2)
	assert.True(t, archive.Verify(data, fields[0]))
	assert.Equal(t, out, fields[1])

	assert.FileExists(t, filepath.Join(extract, "demo", "build.gradle"))
	assert.DirExists(t, filepath.Join(extract, "demo", "src", "main", "kotlin", "org", "example"))
}

func TestGenerate_RejectsInvalidSpecification(t *testing.T) {
	_, err := run(t, "generate",
		"--name", "demo",
		"--namespace", "org.1example",
		"--language", "java",
		"--output", filepath.Join(t.TempDir(), "demo.zip"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Equal(t, 2, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestGenerate_RequiresLanguage(t *testing.T) {
	_, err := run(t, "generate", "--name", "demo", "--namespace", "org.example")
	require.Error(t, err)
}

func TestInit_RefusesToOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skelbuilder.yaml")

	stdout, err := run(t, "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "initialized successfully")
	require.FileExists(t, path)

	_, err = run(t, "--config", path, "init")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	_, err = run(t, "--config", path, "init", "--force")
	require.NoError(t, err)
}

func TestOptions_JSONGroup(t *testing.T) {
	stdout, err := run(t, "options", "--json", "--group", "testing")
	require.NoError(t, err)

	var catalog project.Catalog
	require.NoError(t, json.Unmarshal([]byte(stdout), &catalog))
	assert.NotEmpty(t, catalog.Testing)
	assert.Empty(t, catalog.Languages)
	assert.Equal(t, project.DefaultVersion, catalog.Defaults["version"])
}

func TestOptions_Text(t *testing.T) {
	stdout, err := run(t, "options")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Languages:")
	assert.Contains(t, stdout, "KOTLIN")
	assert.Contains(t, stdout, "Defaults: ")
}

func TestVersion(t *testing.T) {
	stdout, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", stdout)
}

func serviceConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Storage.Directory = filepath.Join(base, "artifacts")
	cfg.Build.StagingDir = filepath.Join(base, "staging")
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(base, "journal.db")
	cfg.Monitoring.Metrics.Enabled = true
	return cfg
}

func TestService_RecoversPublishedBuildsAfterRestart(t *testing.T) {
	base := t.TempDir()
	cfg := serviceConfig(t, base)

	svc, err := newService(t.Context(), cfg)
	require.NoError(t, err)

	spec, err := project.Validate(project.RawSpecification{
		Name:      "demo",
		Namespace: "org.example",
		Languages: []string{"JAVA"},
	})
	require.NoError(t, err)
	req, err := svc.builds.Schedule(t.Context(), spec)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		r, err := svc.builds.Get(req.ID)
		return err == nil && r.Status == build.StatusReady
	}, 10*time.Second, 10*time.Millisecond)
	svc.shutdown()

	restarted, err := newService(t.Context(), cfg)
	require.NoError(t, err)
	t.Cleanup(restarted.shutdown)

	r, err := restarted.builds.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, build.StatusReady, r.Status)
	require.NotNil(t, r.Artifact)

	h, err := restarted.builds.Fetch(t.Context(), req.ID)
	require.NoError(t, err)
	require.NoError(t, h.Close())
}

func TestService_ReloadAppliesRetention(t *testing.T) {
	cfg := serviceConfig(t, t.TempDir())
	cfg.Journal.Enabled = false

	svc, err := newService(t.Context(), cfg)
	require.NoError(t, err)
	t.Cleanup(svc.shutdown)

	next := *cfg
	next.Retention.Policy = config.RetentionFirstDownload
	next.Retention.SweepInterval = config.Duration(time.Minute)
	svc.reload(&next)

	assert.Equal(t, config.RetentionFirstDownload, svc.builds.Retention().Policy)
}
