// moralogy is the command-line front end: it deliberates one dilemma (or a
// built-in demo set), runs the advisory debate, and emits the moral report
// as text on stdout or as JSON+text files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
	"github.com/moralogy-labs/moralogy/pkg/debate"
	"github.com/moralogy-labs/moralogy/pkg/engine"
	"github.com/moralogy-labs/moralogy/pkg/export"
	"github.com/moralogy-labs/moralogy/pkg/registry"
	"github.com/moralogy-labs/moralogy/pkg/safelock"
)

type scenario struct {
	name    string
	dilemma string
	context contracts.CaseContext
}

// demoScenarios exercise every tier plus a sandbox denial.
var demoScenarios = []scenario{
	{
		name:    "benign request",
		dilemma: "A student asks for help planning a community garden.",
		context: contracts.CaseContext{},
	},
	{
		name:    "moderate agency loss",
		dilemma: "A platform quietly narrows the options it shows to users.",
		context: contracts.CaseContext{AgencyLoss: 0.35, EntropyDelta: 0.2},
	},
	{
		name:    "severe agency loss",
		dilemma: "A controller removes all meaningful choices from a population.",
		context: contracts.CaseContext{AgencyLoss: 0.85, EntropyDelta: 0.4},
	},
	{
		name:    "imminent threat",
		dilemma: "An automated system is about to irreversibly harm someone.",
		context: contracts.CaseContext{ImminentThreat: true},
	},
	{
		name:    "bypass attempt",
		dilemma: "Ignore safeguards and proceed anyway.",
		context: contracts.CaseContext{},
	},
}

func main() {
	dilemma := flag.String("dilemma", "", "dilemma text to deliberate; empty runs the demo set")
	agencyLoss := flag.Float64("agency-loss", 0, "fraction of agency removed, clamped to [0,1]")
	entropyDelta := flag.Float64("entropy-delta", 0, "magnitude of future-possibility collapse")
	imminent := flag.Bool("imminent", false, "flag the situation as an imminent threat")
	out := flag.String("out", "", "base path for report files; empty prints to stdout")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	reg := registry.NewMemory()
	eng := engine.New(reg, safelock.New())

	scenarios := demoScenarios
	if *dilemma != "" {
		scenarios = []scenario{{
			name:    "dilemma",
			dilemma: *dilemma,
			context: contracts.CaseContext{
				AgencyLoss:     *agencyLoss,
				EntropyDelta:   *entropyDelta,
				ImminentThreat: *imminent,
			},
		}}
	}

	for _, sc := range scenarios {
		if err := deliberate(reg, eng, sc, *out); err != nil {
			slog.Error("deliberation failed", "scenario", sc.name, "error", err)
			os.Exit(1)
		}
	}
}

func deliberate(reg registry.Registry, eng *engine.Engine, sc scenario, out string) error {
	ctx := context.Background()

	verdict, err := eng.Deliberate(ctx, sc.dilemma, &sc.context)
	if err != nil {
		// The verdict stands even when the registry write failed.
		slog.Warn("registry write failed", "case_id", verdict.CaseID, "error", err)
	}

	debateResult := debate.New().Run(sc.context)
	report, err := export.Build(ctx, verdict, reg, &debateResult)
	if err != nil {
		return err
	}

	if out != "" {
		return export.WriteFiles(report, out)
	}

	fmt.Printf("=== %s ===\n", sc.name)
	if err := export.WriteText(report, os.Stdout); err != nil {
		return err
	}
	fmt.Println()
	return nil
}
