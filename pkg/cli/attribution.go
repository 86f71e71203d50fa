package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/mchmarny/semscore/pkg/data"
	"github.com/mchmarny/semscore/pkg/domain"
	"github.com/mchmarny/semscore/pkg/matrix"
	"github.com/mchmarny/semscore/pkg/score"
	"github.com/urfave/cli/v3"
)

const (
	matrixFlagName  = "matrix"
	domainsFlagName = "domains"
	alphaFlagName   = "alpha"
	rhoFlagName     = "rho"
	deltaFlagName   = "delta"
	outFlagName     = "out"
	saveFlagName    = "save"
)

func domainsFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     domainsFlagName,
		Usage:    "Domain definitions: TSV or YAML file, or a directory of per-domain .txt files",
		Required: true,
	}
}

func outFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  outFlagName,
		Usage: usage,
	}
}

func saveFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  saveFlagName,
		Usage: "Save the run to the run store",
	}
}

func attributionCommand() *cli.Command {
	return &cli.Command{
		Name:    "attribution",
		Aliases: []string{"a"},
		Usage:   "Score how well the association matrix agrees with the domain assignment",
		Action:  cmdAttribution,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     matrixFlagName,
				Usage:    "Association matrix TSV (path or http(s) URL)",
				Required: true,
			},
			domainsFlag(),
			&cli.FloatFlag{
				Name:  alphaFlagName,
				Usage: "Same-domain vs cross-domain weight in [0, 2] (overrides scoring.alpha)",
			},
			&cli.FloatFlag{
				Name:  rhoFlagName,
				Usage: "Cross-domain misattribution penalty, > 0 (overrides scoring.rho)",
			},
			&cli.FloatFlag{
				Name:  deltaFlagName,
				Usage: "Ideal same-domain similarity (overrides scoring.delta)",
			},
			outFlag("Output TSV of word, domain, cdd, sdd, score, best"),
			saveFlag(),
		},
	}
}

type attributionSummary struct {
	RunID     string             `json:"run_id,omitempty" yaml:"runId,omitempty"`
	Domains   int                `json:"domains" yaml:"domains"`
	Words     int                `json:"words" yaml:"words"`
	Scored    int                `json:"scored" yaml:"scored"`
	MeanScore float64            `json:"mean_score" yaml:"meanScore"`
	Params    score.Params       `json:"params" yaml:"params"`
	Delta     float64            `json:"delta" yaml:"delta"`
	Out       string             `json:"out,omitempty" yaml:"out,omitempty"`
	Failures  []attributionError `json:"failures,omitempty" yaml:"failures,omitempty"`
}

type attributionError struct {
	Stage   string `json:"stage" yaml:"stage"`
	Domain  string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Word    string `json:"word,omitempty" yaml:"word,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func cmdAttribution(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	e, err := newEngine(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	a, err := e.Run(ctx)
	if err != nil {
		return fmt.Errorf("scoring attribution: %w", err)
	}

	sum := attributionSummary{
		Domains: len(e.Domains),
		Words:   e.Domains.WordCount(),
		Scored:  len(a.Combined),
		Params:  e.Params,
		Delta:   e.Delta,
	}
	if m := a.Mean(); !math.IsNaN(m) {
		sum.MeanScore = m
	}
	for _, f := range a.Failures {
		sum.Failures = append(sum.Failures, attributionError{
			Stage:   string(f.Stage),
			Domain:  f.Domain,
			Word:    f.Word,
			Message: f.Message(),
		})
	}

	if out := cmd.String(outFlagName); out != "" {
		if err := writeOutput(out, func(w io.Writer) error { return writeScores(w, a.Records()) }); err != nil {
			return err
		}
		sum.Out = out
	}

	if cmd.Bool(saveFlagName) {
		db, err := cfg.DB()
		if err != nil {
			return err
		}
		run := data.NewRun(data.KindAttribution, cmd.String(matrixFlagName), map[string]any{
			"alpha":   e.Params.Alpha,
			"rho":     e.Params.Rho,
			"delta":   e.Delta,
			"domains": cmd.String(domainsFlagName),
		})
		if err := data.SaveAttribution(db, run, a); err != nil {
			return fmt.Errorf("saving attribution: %w", err)
		}
		sum.RunID = run.ID
	}

	return encode(cmd, sum)
}

func newEngine(ctx context.Context, cmd *cli.Command, cfg *appConfig) (*score.Engine, error) {
	matrixPath, err := fetchSource(ctx, cfg, cmd.String(matrixFlagName))
	if err != nil {
		return nil, err
	}
	m, err := matrix.LoadFile(matrixPath)
	if err != nil {
		return nil, err
	}

	domainsPath, err := fetchSource(ctx, cfg, cmd.String(domainsFlagName))
	if err != nil {
		return nil, err
	}
	set, err := domain.Load(domainsPath)
	if err != nil {
		return nil, err
	}

	e := score.NewEngine(m, set)
	e.Params = cfg.Config.Params()
	e.Delta = cfg.Config.Scoring.Delta
	e.Workers = cfg.Config.Workers
	if cmd.IsSet(alphaFlagName) {
		e.Params.Alpha = cmd.Float(alphaFlagName)
	}
	if cmd.IsSet(rhoFlagName) {
		e.Params.Rho = cmd.Float(rhoFlagName)
	}
	if cmd.IsSet(deltaFlagName) {
		e.Delta = cmd.Float(deltaFlagName)
	}
	return e, nil
}

// writeScores writes word, domain, cdd, sdd, score, best rows.
func writeScores(w io.Writer, records []score.WordRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"word", "domain", "cdd", "sdd", "score", "best"}); err != nil {
		return err
	}
	for _, r := range records {
		best := "0"
		if r.Best {
			best = "1"
		}
		err := cw.Write([]string{
			r.Word,
			r.Domain,
			strconv.FormatFloat(r.CDD, 'g', -1, 64),
			strconv.FormatFloat(r.SDD, 'g', -1, 64),
			strconv.FormatFloat(r.Score, 'g', -1, 64),
			best,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
