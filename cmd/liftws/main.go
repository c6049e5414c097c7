// Command liftws inspects and edits the writing systems of LIFT lexicons.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/liftws/core/lift"
	"github.com/FocuswithJustin/liftws/core/sqlite"
	"github.com/FocuswithJustin/liftws/core/wsrepo"
	"github.com/FocuswithJustin/liftws/core/wstag"
	"github.com/FocuswithJustin/liftws/internal/config"
	"github.com/FocuswithJustin/liftws/internal/fileutil"
	"github.com/FocuswithJustin/liftws/internal/logging"
)

const version = "0.1.0"

var (
	okColor   = color.New(color.FgGreen)
	skipColor = color.New(color.FgYellow)
	tagColor  = color.New(color.FgCyan, color.Bold)
)

// CLI defines the command-line interface for liftws.
var CLI struct {
	// Global flags
	Config   string `name:"config" short:"c" help:"Path to liftws.toml (default: search upward from the working directory)" type:"path"`
	LogLevel string `name:"log-level" help:"Override the configured log level (debug, info, warn, error)"`

	Scan     ScanCmd      `cmd:"" help:"List the writing systems used in LIFT files"`
	Rename   RenameCmd    `cmd:"" help:"Rename a writing system in a LIFT file"`
	Orphans  OrphansCmd   `cmd:"" help:"Register or repair writing systems missing from the registry"`
	Census   CensusCmd    `cmd:"" help:"Count writing-system usage per entry"`
	Restore  RestoreCmd   `cmd:"" help:"Restore a LIFT file from an xz backup"`
	Registry RegistryCmds `cmd:"" help:"Writing-system registry operations"`
	Version  VersionCmd   `cmd:"" help:"Print version information"`
}

// Env is shared by every command.
type Env struct {
	Ctx    context.Context
	Config *config.Config
	Out    io.Writer
}

func newEnv(configPath, logLevel string, out io.Writer, logOut io.Writer) (*Env, error) {
	cfg, err := config.Discover(configPath, ".")
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	logging.InitLogger(level, format, logOut)

	ctx := logging.WithRunID(context.Background(), logging.NewRunID())
	return &Env{Ctx: ctx, Config: cfg, Out: out}, nil
}

func (e *Env) openRegistry() (*wsrepo.SQLiteRepository, error) {
	return wsrepo.OpenSQLite(e.Config.Registry.Path)
}

// ScanCmd lists the writing systems used in one or more files.
type ScanCmd struct {
	Files []string `arg:"" help:"LIFT files to scan" type:"existingfile"`
	Jobs  int      `short:"j" help:"Files scanned in parallel (default: GOMAXPROCS)"`
}

func (c *ScanCmd) Run(env *Env) error {
	if len(c.Files) == 0 {
		return nil
	}
	jobs := c.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Each goroutine owns one slot.
	results := make([][]string, len(c.Files))

	g, gctx := errgroup.WithContext(env.Ctx)
	g.SetLimit(min(jobs, len(c.Files)))
	for i, path := range c.Files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			tags, err := lift.ScanFile(path)
			if err != nil {
				logging.OperationFailed(env.Ctx, "scan", path, err)
				return err
			}
			logging.ScanCompleted(env.Ctx, path, tags, time.Since(start))
			results[i] = tags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, path := range c.Files {
		quoted := make([]string, len(results[i]))
		for j, tag := range results[i] {
			quoted[j] = tagColor.Sprint(tag)
		}
		fmt.Fprintf(env.Out, "%s: %s\n", path, strings.Join(quoted, " "))
	}
	return nil
}

// RenameCmd renames a writing system in a file.
type RenameCmd struct {
	File     string `arg:"" help:"LIFT file to edit" type:"existingfile"`
	OldID    string `arg:"" name:"old-id" help:"Writing system to rename"`
	NewID    string `arg:"" name:"new-id" help:"Writing system to rename it to"`
	NoBackup bool   `name:"no-backup" help:"Do not write an xz backup before replacing the file"`
	Registry bool   `name:"registry" help:"Also rename (or merge) the writing system in the registry"`
}

func (c *RenameCmd) Run(env *Env) error {
	if c.OldID == "" || c.NewID == "" {
		return fmt.Errorf("writing-system ids must not be empty")
	}

	opts := lift.Options{}
	if !c.NoBackup {
		opts.BackupDir = env.Config.BackupDirFor(c.File)
	}

	start := time.Now()
	result, err := lift.NewFile(c.File, opts).ReplaceWritingSystemID(c.OldID, c.NewID)
	if err != nil {
		logging.OperationFailed(env.Ctx, "rename", c.File, err)
		return err
	}
	logging.RewriteCompleted(env.Ctx, c.File, c.OldID, c.NewID,
		result.Stats.Renamed, result.Stats.Blanked, result.Changed, time.Since(start))

	if result.Changed {
		okColor.Fprintf(env.Out, "%s: renamed %d, blanked %d duplicate(s)\n",
			c.File, result.Stats.Renamed, result.Stats.Blanked)
		if result.BackupPath != "" {
			fmt.Fprintf(env.Out, "  backup: %s\n", result.BackupPath)
		}
	} else {
		skipColor.Fprintf(env.Out, "%s: unchanged\n", c.File)
	}

	if c.Registry {
		return c.renameInRegistry(env)
	}
	return nil
}

func (c *RenameCmd) renameInRegistry(env *Env) error {
	repo, err := env.openRegistry()
	if err != nil {
		return err
	}
	defer repo.Close()

	hasOld, err := repo.Contains(c.OldID)
	if err != nil {
		return err
	}
	if !hasOld {
		skipColor.Fprintf(env.Out, "registry: %s not registered, nothing to rename\n", c.OldID)
		return nil
	}
	hasNew, err := repo.Contains(c.NewID)
	if err != nil {
		return err
	}
	if hasNew {
		if err := repo.Conflate(c.OldID, c.NewID); err != nil {
			return err
		}
		okColor.Fprintf(env.Out, "registry: merged %s into %s\n", c.OldID, c.NewID)
		return nil
	}

	def, err := repo.Get(c.OldID)
	if err != nil {
		return err
	}
	def.ID = c.NewID
	if err := repo.Set(def); err != nil {
		return err
	}
	okColor.Fprintf(env.Out, "registry: renamed %s to %s\n", c.OldID, c.NewID)
	return nil
}

// OrphansCmd registers the writing systems of a file that the registry
// lacks, renaming tags in the file where needed.
type OrphansCmd struct {
	File     string `arg:"" help:"LIFT file to check" type:"existingfile"`
	NoBackup bool   `name:"no-backup" help:"Do not write an xz backup before replacing the file"`
}

func (c *OrphansCmd) Run(env *Env) error {
	repo, err := env.openRegistry()
	if err != nil {
		return err
	}
	defer repo.Close()

	opts := lift.Options{}
	if !c.NoBackup {
		opts.BackupDir = env.Config.BackupDirFor(c.File)
	}

	report, err := lift.NewFile(c.File, opts).CreateNonExistentWritingSystemsFoundInFile(repo)
	if err != nil {
		logging.OperationFailed(env.Ctx, "orphans", c.File, err)
		return err
	}

	if report.Empty() {
		skipColor.Fprintf(env.Out, "%s: all writing systems registered\n", c.File)
		return nil
	}
	for _, id := range report.Created {
		logging.OrphanResolved(env.Ctx, c.File, id, "", true)
		okColor.Fprintf(env.Out, "created %s\n", id)
	}
	for _, r := range report.Renamed {
		logging.OrphanResolved(env.Ctx, c.File, r.From, r.To, false)
		okColor.Fprintf(env.Out, "replaced %s with %s\n", r.From, r.To)
	}
	return nil
}

// CensusCmd prints per-writing-system usage counts.
type CensusCmd struct {
	File string `arg:"" help:"LIFT file to count" type:"existingfile"`
}

func (c *CensusCmd) Run(env *Env) error {
	census, err := lift.CensusFile(c.File)
	if err != nil {
		logging.OperationFailed(env.Ctx, "census", c.File, err)
		return err
	}

	fmt.Fprintf(env.Out, "%d entries, %d alternatives\n", census.Entries, census.Alternatives)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TAG", "ENTRIES", "ALTERNATIVES", "BLANK")
	for _, tag := range census.Tags() {
		u := census.Usage[tag]
		name := tag
		if name == "" {
			name = "(none)"
		}
		t.Row(name, strconv.Itoa(u.Entries), strconv.Itoa(u.Alternatives), strconv.Itoa(u.Blank))
	}
	fmt.Fprintln(env.Out, t.String())
	return nil
}

// RestoreCmd puts a backup written by rename or orphans back in place.
type RestoreCmd struct {
	Backup string `arg:"" help:"xz backup to restore" type:"existingfile"`
	File   string `arg:"" help:"LIFT file to overwrite" type:"path"`
}

func (c *RestoreCmd) Run(env *Env) error {
	if err := fileutil.RestoreXZ(c.Backup, c.File); err != nil {
		logging.OperationFailed(env.Ctx, "restore", c.File, err)
		return err
	}
	logging.InfoContext(env.Ctx, "restore_completed", "path", c.File, "backup", c.Backup)
	okColor.Fprintf(env.Out, "%s: restored from %s\n", c.File, c.Backup)
	return nil
}

// RegistryCmds groups registry operations.
type RegistryCmds struct {
	List   RegistryListCmd   `cmd:"" help:"List registered writing systems"`
	Add    RegistryAddCmd    `cmd:"" help:"Register a writing system"`
	Remove RegistryRemoveCmd `cmd:"" help:"Remove a writing system"`
}

// RegistryListCmd lists the registry.
type RegistryListCmd struct {
	TextOnly bool `name:"text-only" help:"Hide voice (audio) writing systems"`
}

func (c *RegistryListCmd) Run(env *Env) error {
	repo, err := env.openRegistry()
	if err != nil {
		return err
	}
	defer repo.Close()

	defs, err := repo.All()
	if err != nil {
		return err
	}
	for _, def := range defs {
		if c.TextOnly && def.IsVoice() {
			continue
		}
		if def.Name != "" {
			fmt.Fprintf(env.Out, "%s\t%s\n", tagColor.Sprint(def.ID), def.Name)
		} else {
			fmt.Fprintln(env.Out, tagColor.Sprint(def.ID))
		}
	}
	return nil
}

// RegistryAddCmd registers a writing system.
type RegistryAddCmd struct {
	ID   string `arg:"" help:"Writing-system tag, e.g. de-CH"`
	Name string `help:"Display name"`
}

func (c *RegistryAddCmd) Run(env *Env) error {
	tag, err := wstag.Parse(c.ID)
	if err != nil {
		return err
	}

	repo, err := env.openRegistry()
	if err != nil {
		return err
	}
	defer repo.Close()

	id := tag.String()
	if err := repo.Set(&wsrepo.Definition{ID: id, Name: c.Name}); err != nil {
		return err
	}
	okColor.Fprintf(env.Out, "added %s\n", id)
	return nil
}

// RegistryRemoveCmd removes a writing system.
type RegistryRemoveCmd struct {
	ID string `arg:"" help:"Writing-system tag"`
}

func (c *RegistryRemoveCmd) Run(env *Env) error {
	repo, err := env.openRegistry()
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Remove(c.ID); err != nil {
		return err
	}
	okColor.Fprintf(env.Out, "removed %s\n", c.ID)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(env *Env) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(env.Out, "liftws version %s\n", version)
	fmt.Fprintf(env.Out, "sqlite driver: %s (%s, %s)\n", info.DriverName, info.DriverType, info.Package)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("liftws"),
		kong.Description("Writing-system maintenance for LIFT lexicons"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	env, err := newEnv(CLI.Config, CLI.LogLevel, os.Stdout, os.Stderr)
	ctx.FatalIfErrorf(err)
	err = ctx.Run(env)
	ctx.FatalIfErrorf(err)
}
