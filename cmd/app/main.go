package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"text/tabwriter"

	"MarketPhase/internal/di"
	"MarketPhase/internal/domain/models"
	"MarketPhase/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	once := flag.Bool("once", false, "run one analysis, print it and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	defer cleanup()

	if *once {
		r, err := app.Once(context.Background())
		if err != nil {
			cleanup()
			log.Fatalf("analysis failed: %v", err)
		}
		printReport(os.Stdout, r)
		return
	}

	if err := app.Run(); err != nil {
		cleanup()
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

func printReport(w io.Writer, r *models.PhaseReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDICATOR\tVALUE\tTONE\tNOTE")
	for _, rd := range r.Readings {
		value := "-"
		if rd.Value != nil {
			value = fmt.Sprintf("%.2f", *rd.Value)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rd.Indicator, value, rd.Tone, rd.Note)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "SIGNAL\tVALUE\tVOTES")
	for _, s := range []models.Signal{
		r.Signals.RateDown, r.Signals.RateUp,
		r.Signals.IndexUp, r.Signals.IndexDown,
		r.Signals.EconUp, r.Signals.EconDown,
	} {
		fmt.Fprintf(tw, "%s\t%t\t%d/%d (need %d)\n", s.Name, s.Value, s.Votes, s.Present, s.Required)
	}
	_ = tw.Flush()

	if len(r.SourceErrors) > 0 {
		names := make([]string, 0, len(r.SourceErrors))
		for name := range r.SourceErrors {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w)
		for _, name := range names {
			fmt.Fprintf(w, "source %s failed: %s\n", name, r.SourceErrors[name])
		}
	}

	fmt.Fprintf(w, "\nphase: %s (%s)\n", r.Verdict, r.Timestamp.Format("2006-01-02 15:04 MST"))
}
