// Package cli parses and runs the emurec command line: validating exports,
// converting them into imports, querying records, and building group
// imports.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/emudata/emurec/internal/exit"
)

var (
	ErrNoArguments    = errors.New("no arguments provided")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoInputFiles   = errors.New("no input files specified")
	ErrNoExpression   = errors.New("no query expression specified")
	ErrNoTargetModule = errors.New("no target module specified")
)

// Commands supported by the tool.
const (
	CommandValidate = "validate"
	CommandConvert  = "convert"
	CommandQuery    = "query"
	CommandGroup    = "group"
)

// Config is the parsed command line.
type Config struct {
	Command string
	Files   []string

	// Shared options
	SchemaFile string
	Output     string
	Verbose    bool
	Progress   int

	// convert
	Prune bool

	// query
	Expression string

	// group
	TargetModule string
	GroupName    string
	GroupIRN     string
	Dynamic      bool
}

// Usage returns the command-line help text.
func Usage() string {
	return `emurec - exchange hierarchical records with an EMu system

Usage:
  emurec validate -schema FILE export.xml [...]
  emurec convert  -schema FILE [-prune] [-o FILE] export.xml
  emurec query    -schema FILE -q EXPR export.xml [...]
  emurec group    -schema FILE -target MODULE (-name NAME | -irn IRN) [-o FILE] keys.txt

Commands:
  validate  expand every record of an export and report schema violations
  convert   rewrite an export as an import file, records expanded
  query     run a JSONPath expression against every record and print matches
  group     build an egroups import from a file of record keys

Options:
  -schema FILE    YAML schema catalog (field kinds, references, table groups)
  -o FILE         output file (default stdout)
  -q EXPR         JSONPath expression, e.g. $.CatCollectionName_tab[*]
  -prune          drop blank fields before conversion
  -target MODULE  module the group keys belong to
  -name NAME      name for a new group
  -irn IRN        key of an existing group to overwrite
  -dynamic        mark the group as dynamic instead of static
  -progress N     log reading progress every N records (default 5000)
  -v              verbose logging
`
}

// Parse converts command-line arguments into a Config. On failure it
// returns the exit result to print instead.
func Parse(args []string) (*Config, *exit.Result) {
	if len(args) < 2 {
		return nil, exit.Errorf("Error: %v\n\n%s", ErrNoArguments, Usage())
	}

	cfg := &Config{Command: args[1]}
	switch cfg.Command {
	case CommandValidate, CommandConvert, CommandQuery, CommandGroup:
	case "help", "-h", "-help", "--help":
		return nil, exit.Success(Usage())
	default:
		return nil, exit.Errorf("Error: %v: %s\n\n%s", ErrUnknownCommand, cfg.Command, Usage())
	}

	fs := flag.NewFlagSet(cfg.Command, flag.ContinueOnError)
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.SchemaFile, "schema", "", "YAML schema catalog")
	fs.StringVar(&cfg.Output, "o", "", "output file")
	fs.StringVar(&cfg.Expression, "q", "", "JSONPath expression")
	fs.BoolVar(&cfg.Prune, "prune", false, "drop blank fields before conversion")
	fs.StringVar(&cfg.TargetModule, "target", "", "module the group keys belong to")
	fs.StringVar(&cfg.GroupName, "name", "", "name for a new group")
	fs.StringVar(&cfg.GroupIRN, "irn", "", "key of an existing group")
	fs.BoolVar(&cfg.Dynamic, "dynamic", false, "mark the group as dynamic")
	fs.IntVar(&cfg.Progress, "progress", 5000, "log progress every N records")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose logging")

	if err := fs.Parse(args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, exit.Success(Usage())
		}
		return nil, exit.Errorf("Error: failed to parse arguments: %v\n\n%s", err, Usage())
	}
	cfg.Files = fs.Args()

	if err := cfg.validate(); err != nil {
		return nil, exit.Errorf("Error: %v\n\n%s", err, Usage())
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Files) == 0 {
		return ErrNoInputFiles
	}
	switch c.Command {
	case CommandQuery:
		if c.Expression == "" {
			return ErrNoExpression
		}
	case CommandGroup:
		if c.TargetModule == "" {
			return ErrNoTargetModule
		}
		if c.GroupName == "" && c.GroupIRN == "" {
			return fmt.Errorf("group needs -name or -irn")
		}
	}
	return nil
}
