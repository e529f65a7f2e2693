package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/rfielding/mdptools/pkg/config"
	"github.com/rfielding/mdptools/pkg/experiment"
	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/mdplog"
	"github.com/rfielding/mdptools/pkg/server"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "experiment":
		runExperiment(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "mdptools: unknown subcommand %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  mdptools serve [-addr :8080] [-spec file.mdp] [-log-level info]
  mdptools experiment -spec file.mdp -from 1 -to 10 -step 1 [-workers 4] [-out out.csv]`)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)
	cfg := config.Load(flags)

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		mdplog.Logger().SetLevel(level)
	}

	if cfg.SpecFile != "" {
		if _, err := os.Stat(cfg.SpecFile); os.IsNotExist(err) {
			log.Fatalf("specification file not found: %s", cfg.SpecFile)
		}
	}

	srv, err := server.New(cfg.SpecFile)
	if err != nil {
		log.Fatalf("creating server: %v", err)
	}

	log.Printf("mdptools serve listening on %s", cfg.Addr)
	if cfg.SpecFile != "" {
		log.Printf("loaded specification: %s", cfg.SpecFile)
	}
	if err := srv.ListenAndServe(cfg.Addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runExperiment(args []string) {
	fs := flag.NewFlagSet("experiment", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	from := fs.Int("from", 1, "smallest scale parameter")
	to := fs.Int("to", 10, "largest scale parameter")
	step := fs.Int("step", 1, "scale step")
	name := fs.String("name", "experiment", "test_system column value in the output CSV")
	fs.Parse(args)
	cfg := config.Load(flags)

	if cfg.SpecFile == "" {
		log.Fatal("experiment requires -spec, a construction DSL file parameterized over a scale placeholder is not supported: pass a fixed -spec and vary -from/-to to explore prefixes of it")
	}

	content, err := os.ReadFile(cfg.SpecFile)
	if err != nil {
		log.Fatalf("reading spec file: %v", err)
	}

	gen := func(n int) (*mdp.System, error) {
		descs, err := mdp.ParseProcesses(string(content))
		if err != nil {
			return nil, err
		}
		return mdp.BuildSystem(descs[:min(n, len(descs))]...)
	}

	out, err := os.Create(cfg.ExperimentOut)
	if err != nil {
		log.Fatalf("creating output file: %v", err)
	}
	defer out.Close()

	expCfg := experiment.Config{From: *from, To: *to, Step: *step, Workers: cfg.Workers}
	if err := experiment.Run(context.Background(), expCfg, *name, gen, out); err != nil {
		log.Fatalf("experiment: %v", err)
	}
	log.Printf("wrote %s", cfg.ExperimentOut)
}
