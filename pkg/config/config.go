// Package config resolves the CLI/server's runtime settings with the
// teacher's own precedence rule: an explicit flag wins, otherwise an
// environment variable, otherwise a hardcoded default. Grounded on
// `reqsrv/main.go`'s `env(k, def string) string` helper and
// `cmd/turducken/main.go`'s `flag.FlagSet` bootstrap.
package config

import (
	"flag"
	"os"
)

// Config is the resolved set of runtime settings shared by `mdptools
// serve` and `mdptools experiment`.
type Config struct {
	Addr          string // ADDR
	SpecFile      string // MDPTOOLS_SPEC_FILE
	LogLevel      string // MDPTOOLS_LOG_LEVEL
	Workers       int
	ExperimentOut string
}

// defaults mirrors reqsrv's own hardcoded fallback (":8080" for ADDR); the
// rest are new settings this module's CLI needs, kept in the teacher's
// same naming register.
var defaults = Config{
	Addr:          ":8080",
	SpecFile:      "",
	LogLevel:      "info",
	Workers:       4,
	ExperimentOut: "out.csv",
}

// env reads an environment variable, falling back to def when unset or
// empty — verbatim the teacher's `env` helper.
func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Flags holds the pointers flag.FlagSet populates for RegisterFlags'
// flag set; Load reads back through them once the caller has run
// fs.Parse.
type Flags struct {
	fs       *flag.FlagSet
	Addr     *string
	SpecFile *string
	LogLevel *string
	Workers  *int
	Out      *string
}

// RegisterFlags declares addr/spec/log-level/workers/out on fs, returning
// the pointers flag.Parse will populate.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs:       fs,
		Addr:     fs.String("addr", defaults.Addr, "HTTP server address (env ADDR)"),
		SpecFile: fs.String("spec", defaults.SpecFile, "construction DSL file to load (env MDPTOOLS_SPEC_FILE)"),
		LogLevel: fs.String("log-level", defaults.LogLevel, "logrus level (env MDPTOOLS_LOG_LEVEL)"),
		Workers:  fs.Int("workers", defaults.Workers, "bounded worker-pool size for mdptools experiment"),
		Out:      fs.String("out", defaults.ExperimentOut, "CSV output path for mdptools experiment"),
	}
}

// wasSet reports whether name was explicitly passed on the command line,
// distinguishing "flag left at its default" from "flag set to the value
// that happens to match the default".
func (f *Flags) wasSet(name string) bool {
	set := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}

// Load resolves a Config: an explicitly-passed flag wins, otherwise the
// environment variable, otherwise the default. Call after fs.Parse. A nil
// Flags resolves purely from environment and defaults, for callers (like
// the server's library entry point) that have no command line to parse.
func Load(f *Flags) Config {
	cfg := defaults
	cfg.Addr = env("ADDR", cfg.Addr)
	cfg.SpecFile = env("MDPTOOLS_SPEC_FILE", cfg.SpecFile)
	cfg.LogLevel = env("MDPTOOLS_LOG_LEVEL", cfg.LogLevel)
	if f == nil {
		return cfg
	}
	if f.wasSet("addr") {
		cfg.Addr = *f.Addr
	}
	if f.wasSet("spec") {
		cfg.SpecFile = *f.SpecFile
	}
	if f.wasSet("log-level") {
		cfg.LogLevel = *f.LogLevel
	}
	cfg.Workers = *f.Workers
	cfg.ExperimentOut = *f.Out
	return cfg
}
