package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"mongo-fixtures/internal/di"
	"mongo-fixtures/internal/fixtures/adapter/filesystem"
	"mongo-fixtures/internal/fixtures/adapter/modifiers"
	"mongo-fixtures/internal/fixtures/config"
	"mongo-fixtures/internal/fixtures/domain/model"
	"mongo-fixtures/internal/fixtures/domain/repository"
	"mongo-fixtures/internal/fixtures/usecase"
	"mongo-fixtures/internal/shared/logger"

	"github.com/davecgh/go-spew/spew"
)

const usage = `Usage: mongo-fixtures <command> [flags] [args]

Commands:
  load [flags] <path>...      load fixture files or directories
  clear [flags] [collection]  clear the named collections, or every collection
  dry-run [flags] <path>...   print the documents a load would insert
  serve [flags]               run the seeding HTTP API

Run "mongo-fixtures <command> -h" for the flags of a command.
`

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// Values of --clear
const (
	clearNone    = "none"
	clearTargets = "targets"
	clearAll     = "all"
)

// environment carries the process streams. connector and logger replace MongoDB
// and the configured logger when set.
type environment struct {
	stdout    io.Writer
	stderr    io.Writer
	connector repository.Connector
	logger    logger.Logger
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// stringList is a repeatable string flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	clear      string
	db         string
	host       string
	port       int
	user       string
	password   string
	clearMode  string
	baseDir    string
	sets       stringList
	hashes     stringList
	timestamps bool
	objectIDs  bool
	quiet      bool
}

func (o *options) connectionFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.db, "db", "", "database name or mongodb:// locator (FIXTURES_DATABASE)")
	fs.StringVar(&o.host, "host", "", "server host (FIXTURES_HOST)")
	fs.IntVar(&o.port, "port", 0, "server port (FIXTURES_PORT)")
	fs.StringVar(&o.user, "user", "", "user name (FIXTURES_USER)")
	fs.StringVar(&o.password, "password", "", "password (FIXTURES_PASSWORD)")
	fs.StringVar(&o.clearMode, "clear-mode", "", "remove or drop (FIXTURES_CLEAR_MODE)")
	fs.BoolVar(&o.quiet, "quiet", false, "only log errors")
}

func (o *options) modifierFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.baseDir, "base-dir", "", "directory relative fixture paths are resolved against (FIXTURES_BASE_DIR)")
	fs.Var(&o.sets, "set", "field=expression, a CEL expression over doc, collection and now (repeatable)")
	fs.Var(&o.hashes, "hash", "bcrypt-hash the plain text value of field (repeatable)")
	fs.BoolVar(&o.timestamps, "timestamps", false, "add createdAt and updatedAt when missing")
	fs.BoolVar(&o.objectIDs, "object-ids", false, "convert hex string _id values to ObjectIDs")
}

// apply writes the command line overrides into cfg
func (o *options) apply(cfg *config.Config) {
	if o.db != "" {
		cfg.Loader.Database = o.db
	}
	if o.host != "" {
		cfg.Loader.Host = o.host
	}
	if o.port != 0 {
		cfg.Loader.Port = o.port
	}
	if o.user != "" {
		cfg.Loader.Username = o.user
	}
	if o.password != "" {
		cfg.Loader.Password = o.password
	}
	if o.clearMode != "" {
		cfg.Loader.ClearMode = config.ClearMode(o.clearMode)
	}
	if o.baseDir != "" {
		cfg.Loader.BaseDir = o.baseDir
	}
	if o.quiet {
		cfg.Log.Level = "error"
	}
}

// modifiers builds the modifier chain requested on the command line, in a fixed order:
// ObjectIDs, timestamps, expressions, then hashing.
func (o *options) modifiers() ([]model.Modifier, error) {
	var mods []model.Modifier
	if o.objectIDs {
		mods = append(mods, modifiers.ObjectIDs())
	}
	if o.timestamps {
		mods = append(mods, modifiers.Timestamps("createdAt", "updatedAt", nil))
	}
	for _, set := range o.sets {
		field, expr, ok := strings.Cut(set, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" || strings.TrimSpace(expr) == "" {
			return nil, usagef("--set %q: expected field=expression", set)
		}
		m, err := modifiers.Expression(field, expr)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", set, err)
		}
		mods = append(mods, m)
	}
	for _, field := range o.hashes {
		mods = append(mods, modifiers.HashField(field, 0))
	}
	return mods, nil
}

func run(ctx context.Context, args []string, env *environment) int {
	if len(args) == 0 {
		fmt.Fprint(env.stderr, usage)
		return exitUsage
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "load":
		err = runLoad(ctx, rest, env)
	case "clear":
		err = runClear(ctx, rest, env)
	case "dry-run":
		err = runDryRun(ctx, rest, env)
	case "serve":
		err = runServe(ctx, rest, env)
	case "help", "-h", "--help":
		fmt.Fprint(env.stdout, usage)
		return exitOK
	default:
		err = usagef("unknown command %q", cmd)
	}

	if err == nil {
		return exitOK
	}
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	fmt.Fprintf(env.stderr, "Error: %v\n", err)
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprint(env.stderr, usage)
		return exitUsage
	}
	return exitFailure
}

func newFlagSet(name string, env *environment) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &usageError{msg: err.Error()}
	}
	return nil
}

// setup loads the environment configuration, applies o and builds the container
func setup(o *options, env *environment, mods []model.Modifier) (*di.Container, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	o.apply(cfg)
	if err := cfg.Loader.Validate(); err != nil {
		return nil, nil, err
	}

	log := env.logger
	if log == nil {
		log = logger.NewLoggerWithConfig(cfg.Log.Backend, cfg.Log.Level, cfg.Log.Format)
	}

	container := di.NewContainer(cfg, log)
	if env.connector != nil {
		err = container.InitializeFixturesWithConnector(env.connector, mods...)
	} else {
		err = container.InitializeFixtures(mods...)
	}
	if err != nil {
		return nil, nil, err
	}
	return container, cfg, nil
}

func closeContainer(container *di.Container, err *error) {
	if cerr := container.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

func runLoad(ctx context.Context, args []string, env *environment) (err error) {
	var o options
	fs := newFlagSet("load", env)
	o.connectionFlags(fs)
	o.modifierFlags(fs)
	fs.StringVar(&o.clear, "clear", clearAll, "collections to clear first: none, targets or all")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	paths := fs.Args()
	if o.db == "" && len(paths) > 1 && looksLikeDatabase(paths[0]) {
		o.db, paths = paths[0], paths[1:]
	}
	if len(paths) == 0 {
		return usagef("load needs at least one fixture path")
	}
	if o.clear != clearNone && o.clear != clearTargets && o.clear != clearAll {
		return usagef("--clear must be none, targets or all, got %q", o.clear)
	}

	mods, err := o.modifiers()
	if err != nil {
		return err
	}
	container, cfg, err := setup(&o, env, mods)
	if err != nil {
		return err
	}
	defer closeContainer(container, &err)

	loader := container.GetFixturesModule().GetLoader()
	set := model.FixtureSet{}
	for _, path := range paths {
		resolved, err := loader.Resolve(ctx, path)
		if err != nil {
			return err
		}
		set.Merge(resolved)
	}

	switch o.clear {
	case clearNone:
		err = loader.Load(ctx, set)
	case clearTargets:
		err = loader.ClearAndLoad(ctx, set)
	default:
		err = loader.ClearAllAndLoad(ctx, set)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(env.stdout, "Loaded %d documents into %d collections of %s\n",
		set.DocumentCount(), len(set), cfg.Loader.DatabaseName())
	return nil
}

// looksLikeDatabase reports whether arg reads as a locator or database name rather than a path
func looksLikeDatabase(arg string) bool {
	if strings.HasPrefix(arg, "mongodb://") || strings.HasPrefix(arg, "mongodb+srv://") {
		return true
	}
	return !strings.ContainsAny(arg, `/\.`)
}

func runClear(ctx context.Context, args []string, env *environment) (err error) {
	var o options
	fs := newFlagSet("clear", env)
	o.connectionFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	container, cfg, err := setup(&o, env, nil)
	if err != nil {
		return err
	}
	defer closeContainer(container, &err)

	names := fs.Args()
	if err := container.GetFixturesModule().GetLoader().Clear(ctx, names...); err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Fprintf(env.stdout, "Cleared every collection of %s\n", cfg.Loader.DatabaseName())
	} else {
		fmt.Fprintf(env.stdout, "Cleared %s in %s\n", strings.Join(names, ", "), cfg.Loader.DatabaseName())
	}
	return nil
}

// runDryRun resolves and modifies fixtures without connecting to a server
func runDryRun(ctx context.Context, args []string, env *environment) error {
	var o options
	fs := newFlagSet("dry-run", env)
	o.modifierFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usagef("dry-run needs at least one fixture path")
	}

	mods, err := o.modifiers()
	if err != nil {
		return err
	}

	log := logger.OrNop(env.logger)
	resolver := usecase.NewResolver(filesystem.NewResourceLoader(log), o.baseDir, log)
	chain := usecase.NewModifierChain(mods...)

	set := model.FixtureSet{}
	for _, path := range fs.Args() {
		resolved, err := resolver.Resolve(ctx, path)
		if err != nil {
			return err
		}
		set.Merge(resolved)
	}

	dump := spew.ConfigState{
		Indent:                  "  ",
		SortKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	for _, name := range set.Collections() {
		batch, err := chain.ApplyBatch(ctx, name, set[name])
		if err != nil {
			return err
		}
		fmt.Fprintf(env.stdout, "== %s (%d documents)\n", name, len(batch))
		for _, doc := range batch {
			dump.Fdump(env.stdout, map[string]interface{}(doc))
		}
	}
	return nil
}

func runServe(ctx context.Context, args []string, env *environment) (err error) {
	var o options
	fs := newFlagSet("serve", env)
	o.connectionFlags(fs)
	o.modifierFlags(fs)
	addr := fs.String("addr", "", "listen address, defaults to SERVER_HOST:SERVER_PORT")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	mods, err := o.modifiers()
	if err != nil {
		return err
	}
	container, cfg, err := setup(&o, env, mods)
	if err != nil {
		return err
	}
	defer closeContainer(container, &err)

	listen := *addr
	if listen == "" {
		listen = cfg.Server.Addr()
	}

	if err := container.HealthCheck(ctx); err != nil {
		container.Logger.Warnf("Starting with unhealthy dependencies: %v", err)
	}

	app := container.GetFixturesModule().App()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Listen(listen)
	}()
	fmt.Fprintf(env.stdout, "Seeding API listening on %s (database %s)\n", listen, cfg.Loader.DatabaseName())

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
