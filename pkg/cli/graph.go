package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mchmarny/semscore/pkg/gap"
	"github.com/mchmarny/semscore/pkg/oracle"
	"github.com/urfave/cli/v3"
)

const wordsFlagName = "words"

func graphCommand() *cli.Command {
	return &cli.Command{
		Name:   "graph",
		Usage:  "Export the oracle neighborhood of a word list as node and edge TSV tables",
		Action: cmdGraph,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     oracleFlagName,
				Usage:    "Similarity oracle data: table TSV or word2vec text vectors (path or http(s) URL)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  oracleKindFlagName,
				Usage: fmt.Sprintf("Oracle kind [%s]", strings.Join(oracle.Kinds, ", ")),
				Value: oracle.KindTable,
			},
			&cli.StringFlag{
				Name:     wordsFlagName,
				Usage:    "Word list, one word per line (path or http(s) URL)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     outFlagName,
				Usage:    "Output path prefix; writes <out>" + gap.NodesSuffix + " and <out>" + gap.EdgesSuffix,
				Required: true,
			},
			&cli.IntFlag{
				Name:  topFlagName,
				Usage: "Nearest neighbors added per input word (overrides gap.top_n)",
			},
		},
	}
}

type graphSummary struct {
	Inputs  int      `json:"inputs" yaml:"inputs"`
	Nodes   int      `json:"nodes" yaml:"nodes"`
	Edges   int      `json:"edges" yaml:"edges"`
	Dropped []string `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	NodesTo string   `json:"nodes_file" yaml:"nodesFile"`
	EdgesTo string   `json:"edges_file" yaml:"edgesFile"`
}

func cmdGraph(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	oraclePath, err := fetchSource(ctx, cfg, cmd.String(oracleFlagName))
	if err != nil {
		return err
	}
	o, err := oracle.Open(cmd.String(oracleKindFlagName), oraclePath)
	if err != nil {
		return err
	}

	wordsPath, err := fetchSource(ctx, cfg, cmd.String(wordsFlagName))
	if err != nil {
		return err
	}
	words, err := gap.LoadWords(wordsPath)
	if err != nil {
		return err
	}

	top := cfg.Config.Gap.TopN
	if cmd.IsSet(topFlagName) {
		top = cmd.Int(topFlagName)
	}

	g, err := gap.NewGraph(o, words, top)
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}

	out := cmd.String(outFlagName)
	sum := graphSummary{
		Inputs:  g.Inputs(),
		Nodes:   len(g.Nodes),
		Edges:   len(g.Edges),
		Dropped: g.Dropped,
		NodesTo: out + gap.NodesSuffix,
		EdgesTo: out + gap.EdgesSuffix,
	}
	if err := writeOutput(sum.NodesTo, func(w io.Writer) error { return g.WriteNodes(w) }); err != nil {
		return err
	}
	if err := writeOutput(sum.EdgesTo, func(w io.Writer) error { return g.WriteEdges(w) }); err != nil {
		return err
	}
	return encode(cmd, sum)
}
