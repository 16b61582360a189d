// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cursedearth/engine/internal/config"
	"github.com/cursedearth/engine/internal/journal"
	"github.com/cursedearth/engine/internal/persistence/sqlite"
)

func runJournalCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printJournalUsage(stdout)
		return 0
	}

	switch args[0] {
	case "verify":
		return runJournalVerify(args[1:], stdout, stderr)
	case "list":
		return runJournalList(args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printJournalUsage(stderr)
		return 2
	}
}

func printJournalUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  ced journal verify [--path PATH | --config FILE] [--mode quick|full]")
	_, _ = fmt.Fprintln(w, "  ced journal list   [--path PATH | --config FILE] [--limit N]")
}

// journalPath returns path, or the journal path of the configuration.
func journalPath(path, configFile string) (string, error) {
	if path = strings.TrimSpace(path); path != "" {
		return path, nil
	}
	cfg, err := config.NewLoader(strings.TrimSpace(configFile), version).Load()
	if err != nil {
		return "", err
	}
	return cfg.JournalPath, nil
}

func runJournalVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ced journal verify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var path, configFile, mode string
	fs.StringVar(&path, "path", "", "path to the journal database")
	fs.StringVar(&configFile, "config", "", "config file used to locate the journal")
	fs.StringVar(&mode, "mode", sqlite.ModeQuick, "verification mode: quick or full")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != sqlite.ModeQuick && mode != sqlite.ModeFull {
		_, _ = fmt.Fprintf(stderr, "Error: invalid mode %q. Use 'quick' or 'full'.\n", mode)
		return 2
	}

	dbPath, err := journalPath(path, configFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if _, err := os.Stat(dbPath); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintf(stderr, "Verifying integrity of %s (mode: %s)...\n", dbPath, mode)
	issues, err := sqlite.VerifyIntegrity(dbPath, mode)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Verification interrupted by system error: %v\n", err)
		return 1
	}
	if issues != nil {
		_, _ = fmt.Fprintln(stderr, "CORRUPTION DETECTED")
		for _, issue := range issues {
			_, _ = fmt.Fprintf(stderr, "  - %s\n", issue)
		}
		return 1
	}
	_, _ = fmt.Fprintln(stdout, "Integrity verified: ok")
	return 0
}

func runJournalList(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ced journal list", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var path, configFile string
	var limit int
	fs.StringVar(&path, "path", "", "path to the journal database")
	fs.StringVar(&configFile, "config", "", "config file used to locate the journal")
	fs.IntVar(&limit, "limit", 20, "number of entries to show")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	dbPath, err := journalPath(path, configFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if _, err := os.Stat(dbPath); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	store, err := journal.OpenStore(ctx, dbPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "QUEUED\tKIND\tNAME\tSTATUS\tITEMS\tDURATION\tERROR")
	for _, e := range entries {
		dur := "-"
		if e.FinishedAt != nil {
			dur = e.FinishedAt.Sub(e.QueuedAt).Round(time.Millisecond).String()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.QueuedAt.Format(time.RFC3339), e.Kind, e.Name, e.Status, e.Items, dur, e.Error)
	}
	_ = tw.Flush()
	return 0
}
