package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mchmarny/semscore/pkg/data"
	"github.com/mchmarny/semscore/pkg/gap"
	"github.com/mchmarny/semscore/pkg/oracle"
	"github.com/urfave/cli/v3"
)

const (
	oracleFlagName     = "oracle"
	oracleKindFlagName = "kind"
	groupsFileFlagName = "groups"
	freqFlagName       = "freq"
	corpusFlagName     = "corpus"
	topFlagName        = "top"
)

func gapCommand() *cli.Command {
	return &cli.Command{
		Name:    "gap",
		Aliases: []string{"g"},
		Usage:   "Evaluate a similarity oracle against test groups of fitting and alien words",
		Action:  cmdGap,
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
				Name:     groupsFileFlagName,
				Usage:    "Test groups TSV (path or http(s) URL)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  freqFlagName,
				Usage: "Word frequency TSV (word, count)",
			},
			&cli.StringSliceFlag{
				Name:  corpusFlagName,
				Usage: "Plain text corpus files or directories to count word occurrences in",
			},
			outFlag("Output report TSV"),
			&cli.IntFlag{
				Name:  topFlagName,
				Usage: "Nearest neighbors averaged into the top score (overrides gap.top_n)",
			},
			saveFlag(),
		},
	}
}

type gapSummary struct {
	RunID          string     `json:"run_id,omitempty" yaml:"runId,omitempty"`
	Groups         int        `json:"groups" yaml:"groups"`
	Scored         int        `json:"scored" yaml:"scored"`
	Failed         int        `json:"failed" yaml:"failed"`
	MeanDifference float64    `json:"mean_difference" yaml:"meanDifference"`
	GapCorrect     int        `json:"gap_correct" yaml:"gapCorrect"`
	OracleCorrect  int        `json:"oracle_correct" yaml:"oracleCorrect"`
	Out            string     `json:"out,omitempty" yaml:"out,omitempty"`
	Failures       []rowError `json:"failures,omitempty" yaml:"failures,omitempty"`
}

type rowError struct {
	Row     int    `json:"row" yaml:"row"`
	Message string `json:"message" yaml:"message"`
}

func cmdGap(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	oraclePath, err := fetchSource(ctx, cfg, cmd.String(oracleFlagName))
	if err != nil {
		return err
	}
	o, err := oracle.Open(cmd.String(oracleKindFlagName), oraclePath)
	if err != nil {
		return err
	}

	groupsPath, err := fetchSource(ctx, cfg, cmd.String(groupsFileFlagName))
	if err != nil {
		return err
	}
	groups, err := gap.LoadTestGroups(groupsPath)
	if err != nil {
		return err
	}

	top := cfg.Config.Gap.TopN
	if cmd.IsSet(topFlagName) {
		top = cmd.Int(topFlagName)
	}
	if top < 1 {
		return fmt.Errorf("top must be at least 1, got %d", top)
	}
	opts := []gap.Option{gap.WithTopN(top), gap.WithWorkers(cfg.Config.Workers)}

	freq, err := loadFrequencies(cmd)
	if err != nil {
		return err
	}
	if freq != nil {
		opts = append(opts, gap.WithFrequencies(freq))
	}

	rep, err := gap.New(o, opts...).Evaluate(ctx, groups)
	if err != nil {
		return err
	}

	sum := gapSummary{
		Groups:         len(groups),
		Scored:         len(rep.Results),
		Failed:         len(rep.Failures),
		MeanDifference: rep.MeanDifference(),
		GapCorrect:     rep.Positive(),
		OracleCorrect:  rep.Correct(),
	}
	for _, f := range rep.Failures {
		sum.Failures = append(sum.Failures, rowError{Row: f.Row, Message: f.Err.Error()})
	}

	if out := cmd.String(outFlagName); out != "" {
		if err := writeOutput(out, func(w io.Writer) error { return gap.WriteReport(w, rep) }); err != nil {
			return err
		}
		sum.Out = out
	}

	if cmd.Bool(saveFlagName) {
		db, err := cfg.DB()
		if err != nil {
			return err
		}
		run := data.NewRun(data.KindGap, cmd.String(oracleFlagName), map[string]any{
			"kind":   cmd.String(oracleKindFlagName),
			"groups": cmd.String(groupsFileFlagName),
			"top_n":  top,
		})
		if err := data.SaveGapReport(db, run, rep); err != nil {
			return fmt.Errorf("saving gap report: %w", err)
		}
		sum.RunID = run.ID
	}

	return encode(cmd, sum)
}

func loadFrequencies(cmd *cli.Command) (oracle.Frequencies, error) {
	if p := cmd.String(freqFlagName); p != "" {
		return oracle.LoadFrequencies(p)
	}
	if paths := cmd.StringSlice(corpusFlagName); len(paths) > 0 {
		return oracle.CountCorpus(paths...)
	}
	return nil, nil
}
