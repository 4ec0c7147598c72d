package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/skelbuilder/internal/archive"
	"git.home.luguber.info/inful/skelbuilder/internal/build"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
	"git.home.luguber.info/inful/skelbuilder/internal/render"
)

// GenerateCmd renders and packages a skeleton without a running service.
type GenerateCmd struct {
	Name      string   `help:"Project name" required:""`
	Namespace string   `help:"Root package, e.g. com.example" required:""`
	Version   string   `help:"Project version (default ${defaultVersion})"`
	Testing   string   `help:"Testing framework"`
	Logging   string   `help:"Logging framework"`
	License   string   `help:"License"`
	Language  []string `short:"l" help:"Language to include; repeat or comma-separate" required:""`
	Git       bool     `help:"Initialize a git repository in the skeleton"`
	Remote    string   `help:"Remote URL registered as origin (implies --git)"`
	Output    string   `short:"o" help:"Archive path (default <name>.zip)"`
	Extract   string   `short:"x" help:"Also unpack the archive into this directory"`
}

func (c *GenerateCmd) raw() project.RawSpecification {
	raw := project.RawSpecification{
		Name:      c.Name,
		Namespace: c.Namespace,
		Testing:   c.Testing,
		Logging:   c.Logging,
		License:   c.License,
		Git:       c.Git || c.Remote != "",
		RemoteURL: c.Remote,
	}
	if c.Version != "" {
		v := c.Version
		raw.Version = &v
	}
	for _, l := range c.Language {
		raw.Languages = append(raw.Languages, project.SplitList(l)...)
	}
	return raw
}

func (c *GenerateCmd) Run(g *Global) error {
	spec, err := project.Validate(c.raw())
	if err != nil {
		return err
	}

	renderer, err := render.New()
	if err != nil {
		return err
	}
	art, err := build.NewGenerator(renderer, archive.NewPackager(0)).Generate(context.Background(), spec)
	if err != nil {
		return err
	}

	out := c.Output
	if out == "" {
		out = spec.ArchiveName()
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FromIO(err, errors.CategoryFileSystem, "failed to create output directory").WithContext("path", dir).Build()
		}
	}
	if err := os.WriteFile(out, art.Data, 0o644); err != nil {
		return errors.FromIO(err, errors.CategoryFileSystem, "failed to write archive").WithContext("path", out).Build()
	}
	slog.Info("Archive written", logfields.Path(out), logfields.Size(art.Size))

	if c.Extract != "" {
		if err := archive.Unpack(art.Data, c.Extract); err != nil {
			return err
		}
		slog.Info("Archive extracted", logfields.Path(c.Extract))
	}

	_, _ = fmt.Fprintf(g.Out, "%s  %s\n", art.Digest, out)
	return nil
}
