package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/emudata/emurec/emuxml"
	"github.com/emudata/emurec/groups"
	"github.com/emudata/emurec/query"
	"github.com/emudata/emurec/schema"
)

// Run executes the parsed command and returns the process exit code.
func Run(ctx context.Context, cfg *Config) int {
	logger := newLogger(cfg.Verbose)

	var cat schema.Catalog
	if cfg.SchemaFile != "" {
		loaded, err := schema.LoadFile(cfg.SchemaFile)
		if err != nil {
			logger.Error().Err(err).Str("schema", cfg.SchemaFile).Msg("cannot load schema catalog")
			return 1
		}
		cat = loaded
	}

	var err error
	switch cfg.Command {
	case CommandValidate:
		err = runValidate(ctx, cfg, cat, logger)
	case CommandConvert:
		err = runConvert(ctx, cfg, cat, logger)
	case CommandQuery:
		err = runQuery(ctx, cfg, cat, logger)
	case CommandGroup:
		err = runGroup(cfg, cat, logger)
	}
	if err != nil {
		logger.Error().Err(err).Str("command", cfg.Command).Msg("command failed")
		return 1
	}
	return 0
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
}

func runValidate(ctx context.Context, cfg *Config, cat schema.Catalog, logger zerolog.Logger) error {
	total, invalid := 0, 0
	for _, file := range cfg.Files {
		err := withExport(file, cat, cfg.Progress, logger, func(rd *emuxml.Reader) error {
			for _, err := range rd.Records(ctx) {
				total++
				if err != nil {
					invalid++
					logger.Warn().Err(err).Str("file", file).Msg("invalid record")
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	logger.Info().Int("records", total).Int("invalid", invalid).Msg("validation finished")
	if invalid > 0 {
		return fmt.Errorf("%d of %d records failed validation", invalid, total)
	}
	return nil
}

func runConvert(ctx context.Context, cfg *Config, cat schema.Catalog, logger zerolog.Logger) error {
	out, closeOut, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}
	defer closeOut()

	var wr *emuxml.Writer
	for _, file := range cfg.Files {
		err := withExport(file, cat, cfg.Progress, logger, func(rd *emuxml.Reader) error {
			for rec, err := range rd.Records(ctx) {
				if err != nil {
					return err
				}
				if wr == nil {
					wr = emuxml.NewWriter(out, rd.Module(), logger)
				}
				if cfg.Prune {
					rec = rec.Copy()
					rec.Prune()
				}
				if err := wr.Write(rec); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	if wr == nil {
		return fmt.Errorf("no records to convert")
	}
	return wr.Close()
}

func runQuery(ctx context.Context, cfg *Config, cat schema.Catalog, logger zerolog.Logger) error {
	out, closeOut, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}
	defer closeOut()
	enc := json.NewEncoder(out)

	for _, file := range cfg.Files {
		err := withExport(file, cat, cfg.Progress, logger, func(rd *emuxml.Reader) error {
			for rec, err := range rd.Records(ctx) {
				if err != nil {
					return err
				}
				matches, err := query.Select(rec, cfg.Expression)
				if err != nil {
					return err
				}
				for _, match := range matches {
					if err := enc.Encode(match); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func runGroup(cfg *Config, cat schema.Catalog, logger zerolog.Logger) error {
	irns, err := readKeys(cfg.Files)
	if err != nil {
		return err
	}
	rec, err := groups.Build(cat, cfg.TargetModule, irns, groups.Options{
		IRN:     cfg.GroupIRN,
		Name:    cfg.GroupName,
		Dynamic: cfg.Dynamic,
	})
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}
	defer closeOut()

	wr := emuxml.NewWriter(out, rec.Module(), logger)
	if err := wr.Write(rec); err != nil {
		return err
	}
	return wr.Close()
}

// withExport opens an export file and hands a configured reader to fn.
func withExport(file string, cat schema.Catalog, progress int, logger zerolog.Logger, fn func(*emuxml.Reader) error) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	rd := emuxml.NewReader(f, cat, logger.With().Str("file", file).Logger())
	rd.SetProgressEvery(progress)
	return fn(rd)
}

// readKeys loads record keys from files, one key per line, with blank lines
// and # comments skipped.
func readKeys(files []string) ([]string, error) {
	var irns []string
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open keys: %w", err)
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			irns = append(irns, line)
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read keys: %w", err)
		}
	}
	return irns, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { f.Close() }, nil
}
