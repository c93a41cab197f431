package main

import (
	"flag"
	"fmt"
	"io"
	"os/user"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"drill/db"
	"drill/topk"
)

type config struct {
	Mode      string
	K         int
	DBPath    string
	Bucket    string
	Normalize bool
	NGram     int
	Strategy  topk.Strategy
	JSON      bool
	Verbose   bool
	Profile   bool
}

// defaults returns a viper instance holding the built-in defaults, overridden by an
// optional drill.yaml in the working directory or ~/.config/drill and by DRILL_* variables.
func defaults() *viper.Viper {
	v := viper.New()

	v.SetConfigName("drill")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("drill")
	v.AutomaticEnv()

	dbPath := ".drill.db"
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		dbPath = filepath.Join(u.HomeDir, ".drill.db")
		v.AddConfigPath(filepath.Join(u.HomeDir, ".config", "drill"))
	}

	v.SetDefault("mode", "top")
	v.SetDefault("k", 10)
	v.SetDefault("dbpath", dbPath)
	v.SetDefault("bucket", "tokens")
	v.SetDefault("normalize", false)
	v.SetDefault("ngram", 0)
	v.SetDefault("strategy", "auto")
	v.SetDefault("json", false)
	v.SetDefault("verbose", false)
	v.SetDefault("profile", false)

	return v
}

// parseConfig parses args on top of the values in v. Usage and errors go to out.
func parseConfig(v *viper.Viper, args []string, out io.Writer) (config, error) {
	err := v.ReadInConfig()
	if _, notFound := err.(viper.ConfigFileNotFoundError); err != nil && !notFound {
		return config{}, errors.Wrap(err, "reading config file")
	}

	var (
		cfg      config
		strategy string
	)

	fs := flag.NewFlagSet("drill", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVar(&cfg.Mode, "mode", v.GetString("mode"), "What to do with standard input. One of [merge, top, count, dump].")
	fs.IntVar(&cfg.K, "k", v.GetInt("k"), "Number of most frequent tokens to print")
	fs.StringVar(&cfg.DBPath, "dbPath", v.GetString("dbpath"), "path to counter database used by count and dump")
	fs.StringVar(&cfg.Bucket, "bucket", v.GetString("bucket"), "counter database bucket")
	fs.BoolVar(&cfg.Normalize, "normalize", v.GetBool("normalize"), "lowercase tokens and collapse punctuation and digits")
	fs.IntVar(&cfg.NGram, "ngram", v.GetInt("ngram"), "count overlapping byte n-grams of this width instead of words")
	fs.StringVar(&strategy, "strategy", v.GetString("strategy"), "top-k selection. One of [auto, sort, heap].")
	fs.BoolVar(&cfg.JSON, "json", v.GetBool("json"), "print results as JSON")
	fs.BoolVar(&cfg.Verbose, "verbose", v.GetBool("verbose"), "be more verbose")
	fs.BoolVar(&cfg.Profile, "profile", v.GetBool("profile"), "write a CPU profile to the temp directory")

	err = fs.Parse(args)
	if err != nil {
		return config{}, err
	}

	usage := func(format string, args ...interface{}) error {
		fmt.Fprintf(out, format+"\n\n", args...)
		fs.PrintDefaults()

		return errors.Errorf(format, args...)
	}

	switch cfg.Mode {
	case "merge", "top", "count", "dump":
	default:
		return config{}, usage("Unknown mode %q", cfg.Mode)
	}

	if cfg.K < 0 {
		return config{}, usage("k must not be negative, have %d", cfg.K)
	}

	if cfg.NGram < 0 {
		return config{}, usage("ngram must not be negative, have %d", cfg.NGram)
	}

	if !db.ValidBucket(cfg.Bucket) {
		return config{}, usage("Invalid bucket %q", cfg.Bucket)
	}

	cfg.Strategy, err = topk.ParseStrategy(strategy)
	if err != nil {
		return config{}, usage("%s", err)
	}

	return cfg, nil
}
