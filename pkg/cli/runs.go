package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mchmarny/semscore/pkg/data"
	"github.com/mchmarny/semscore/pkg/score"
	"github.com/urfave/cli/v3"
)

const (
	runKindFlagName   = "kind"
	runLimitFlagName  = "limit"
	runIDFlagName     = "id"
	runDeleteFlagName = "delete"

	runListLimitDefault = 20
)

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:   "runs",
		Usage:  "List stored runs, or show one run's results",
		Action: cmdRuns,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  runKindFlagName,
				Usage: fmt.Sprintf("Run kind [%s]", strings.Join([]string{data.KindAttribution, data.KindGap}, ", ")),
			},
			&cli.IntFlag{
				Name:  runLimitFlagName,
				Usage: "Limits number of runs returned",
				Value: runListLimitDefault,
			},
			&cli.StringFlag{
				Name:  runIDFlagName,
				Usage: "Run ID to show",
			},
			&cli.BoolFlag{
				Name:  runDeleteFlagName,
				Usage: "Delete the run given by --id",
			},
		},
	}
}

type runDetail struct {
	Run      *data.Run          `json:"run" yaml:"run"`
	Scores   []score.WordRecord `json:"scores,omitempty" yaml:"scores,omitempty"`
	Groups   []data.GapRow      `json:"groups,omitempty" yaml:"groups,omitempty"`
	Failures []data.Failure     `json:"failures,omitempty" yaml:"failures,omitempty"`
}

func cmdRuns(_ context.Context, cmd *cli.Command) error {
	db, err := getConfig(cmd).DB()
	if err != nil {
		return err
	}

	id := cmd.String(runIDFlagName)
	if id == "" {
		if cmd.Bool(runDeleteFlagName) {
			return fmt.Errorf("--%s requires --%s", runDeleteFlagName, runIDFlagName)
		}
		list, err := data.ListRuns(db, cmd.String(runKindFlagName), cmd.Int(runLimitFlagName))
		if err != nil {
			return err
		}
		return encode(cmd, list)
	}

	if cmd.Bool(runDeleteFlagName) {
		if err := data.DeleteRun(db, id); err != nil {
			return err
		}
		slog.Info("run deleted", "id", id)
		return nil
	}

	run, err := data.GetRun(db, id)
	if err != nil {
		return err
	}
	d := runDetail{Run: run}
	switch run.Kind {
	case data.KindAttribution:
		if d.Scores, err = data.GetRunScores(db, id); err != nil {
			return err
		}
	case data.KindGap:
		if d.Groups, err = data.GetGapResults(db, id); err != nil {
			return err
		}
	}
	if d.Failures, err = data.GetRunFailures(db, id); err != nil {
		return err
	}
	return encode(cmd, d)
}
