// Drill runs interview exercises over standard input: it merges overlapping intervals
// and finds the most frequent tokens of a text. Token counts can be accumulated in a
// counter database across runs.
//
// Results are written to standard output, diagnostic messages to standard error.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"drill/db"
	"drill/interval"
	"drill/topk"
)

// newLogger returns a console logger writing to w.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)

	return zap.New(core)
}

// merge reads one interval per line from in and writes the merged intervals to out.
// Empty lines and lines starting with '#' are skipped.
func merge(in io.Reader, out io.Writer, asJSON bool, log *zap.Logger) error {
	var set interval.Set

	scanner := bufio.NewScanner(in)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		i, err := interval.Parse(line)
		if err != nil {
			return errors.Wrapf(err, "line %d", lineNo)
		}

		set.Add(i)
	}

	err := scanner.Err()
	if err != nil {
		return errors.Wrap(err, "reading intervals")
	}

	merged := set.Slice()

	log.Debug("merged intervals", zap.Int("in", set.Len()), zap.Int("out", len(merged)))

	return writeIntervals(out, merged, asJSON)
}

// top counts the tokens read from in and writes the most frequent ones to out.
func top(in io.Reader, out io.Writer, cfg config, log *zap.Logger) error {
	table := topk.NewTable[string]()

	n, err := scanTokens(in, cfg.Normalize, cfg.NGram, func(tok string) error {
		table.Add(tok)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "counting tokens")
	}

	log.Debug("counted tokens", zap.Int("tokens", n), zap.Int("distinct", table.Len()))

	return writeTop(out, table, cfg)
}

// count reads tokens from in and adds them to the counters in d.
func count(in io.Reader, d *db.DB, cfg config, log *zap.Logger) error {
	n, err := scanTokens(in, cfg.Normalize, cfg.NGram, func(tok string) error {
		return d.Inc(cfg.Bucket, tok, 1)
	})
	if err != nil {
		return errors.Wrap(err, "counting tokens")
	}

	log.Info("counted tokens", zap.Int("tokens", n), zap.String("bucket", cfg.Bucket))

	return nil
}

// dump writes the most frequent tokens stored in d to out.
func dump(d *db.DB, out io.Writer, cfg config, log *zap.Logger) error {
	table := topk.NewTable[string]()

	err := d.Each(cfg.Bucket, func(key string, value int) error {
		table.AddN(key, value)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "reading bucket %q", cfg.Bucket)
	}

	log.Debug("loaded counters", zap.Int("distinct", table.Len()), zap.String("bucket", cfg.Bucket))

	return writeTop(out, table, cfg)
}

func writeTop(out io.Writer, table *topk.Table[string], cfg config) error {
	entries, err := table.TopWith(cfg.K, cfg.Strategy)
	if err != nil {
		return errors.Wrap(err, "selecting most frequent tokens")
	}

	return writeEntries(out, entries, cfg.JSON)
}

func withDB(cfg config, writeable bool, log *zap.Logger, fn func(*db.DB) error) (err error) {
	d, err := db.Open(cfg.DBPath, writeable, db.WithLogger(log))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}

	log.Debug("database open", zap.String("path", cfg.DBPath), zap.Bool("writeable", writeable))

	defer func() {
		cerr := d.Close()
		if err == nil && cerr != nil {
			err = errors.Wrap(cerr, "persisting database")
		}
	}()

	return fn(d)
}

func run(args []string, in io.Reader, out, diag io.Writer) error {
	cfg, err := parseConfig(defaults(), args, diag)
	if err != nil {
		return err
	}

	log := newLogger(diag, cfg.Verbose)
	defer log.Sync()

	if cfg.Profile {
		defer profile.Start(profile.ProfilePath(os.TempDir()), profile.Quiet).Stop()
	}

	switch cfg.Mode {
	case "merge":
		return merge(in, out, cfg.JSON, log)
	case "top":
		return top(in, out, cfg, log)
	case "count":
		return withDB(cfg, true, log, func(d *db.DB) error {
			return count(in, d, cfg, log)
		})
	case "dump":
		return withDB(cfg, false, log, func(d *db.DB) error {
			return dump(d, out, cfg, log)
		})
	default:
		panic(fmt.Sprintf("unexpected mode %q", cfg.Mode))
	}
}

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drill: %s\n", err)
		os.Exit(1)
	}
}
