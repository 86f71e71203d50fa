package cli

import (
	"context"
	"io"
	"time"

	"github.com/mchmarny/semscore/pkg/domain"
	"github.com/mchmarny/semscore/pkg/gap"
	"github.com/urfave/cli/v3"
)

const (
	fittingFlagName = "fitting"
	alienFlagName   = "alien"
	minSizeFlagName = "min-size"
	pairsFlagName   = "pairs"
	seedFlagName    = "seed"
)

func groupsCommand() *cli.Command {
	return &cli.Command{
		Name:   "groups",
		Usage:  "Generate test groups of fitting and alien words from a domain set",
		Action: cmdGroups,
		Flags: []cli.Flag{
			domainsFlag(),
			outFlag("Output test groups TSV (default: stdout)"),
			&cli.IntFlag{
				Name:  fittingFlagName,
				Usage: "Fitting words per group (overrides groups.fitting)",
			},
			&cli.IntFlag{
				Name:  alienFlagName,
				Usage: "Alien words per group (overrides groups.alien)",
			},
			&cli.IntFlag{
				Name:  minSizeFlagName,
				Usage: "Minimum domain size (overrides groups.min_size)",
			},
			&cli.IntFlag{
				Name:  pairsFlagName,
				Usage: "Maximum number of domain pairs (overrides groups.pairs)",
			},
			&cli.Int64Flag{
				Name:  seedFlagName,
				Usage: "Random seed, for reproducible groups (default: current time)",
			},
		},
	}
}

type groupsSummary struct {
	Domains int    `json:"domains" yaml:"domains"`
	Groups  int    `json:"groups" yaml:"groups"`
	Seed    int64  `json:"seed" yaml:"seed"`
	Out     string `json:"out,omitempty" yaml:"out,omitempty"`
}

func cmdGroups(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	path, err := fetchSource(ctx, cfg, cmd.String(domainsFlagName))
	if err != nil {
		return err
	}
	set, err := domain.Load(path)
	if err != nil {
		return err
	}

	seed := time.Now().UnixNano()
	if cmd.IsSet(seedFlagName) {
		seed = cmd.Int64(seedFlagName)
	}

	g := domain.NewGenerator(set, uint64(seed))
	c := cfg.Config.Groups
	g.Fitting, g.Alien, g.MinSize, g.Pairs = c.Fitting, c.Alien, c.MinSize, c.Pairs
	g.ExcludedParents = c.ExcludedParents
	if cmd.IsSet(fittingFlagName) {
		g.Fitting = cmd.Int(fittingFlagName)
	}
	if cmd.IsSet(alienFlagName) {
		g.Alien = cmd.Int(alienFlagName)
	}
	if cmd.IsSet(minSizeFlagName) {
		g.MinSize = cmd.Int(minSizeFlagName)
	}
	if cmd.IsSet(pairsFlagName) {
		g.Pairs = cmd.Int(pairsFlagName)
	}

	groups, err := g.Groups()
	if err != nil {
		return err
	}

	out := cmd.String(outFlagName)
	if out == "" {
		return gap.WriteTestGroups(writer(cmd), groups)
	}
	if err := writeOutput(out, func(w io.Writer) error { return gap.WriteTestGroups(w, groups) }); err != nil {
		return err
	}
	return encode(cmd, groupsSummary{
		Domains: len(set),
		Groups:  len(groups),
		Seed:    seed,
		Out:     out,
	})
}
