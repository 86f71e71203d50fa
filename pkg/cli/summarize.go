package cli

import (
	"context"
	"io"

	"github.com/mchmarny/semscore/pkg/gap"
	"github.com/urfave/cli/v3"
)

const dirFlagName = "dir"

func summarizeCommand() *cli.Command {
	return &cli.Command{
		Name:   "summarize",
		Usage:  "Summarize every GAP report (*.tsv) in a directory",
		Action: cmdSummarize,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     dirFlagName,
				Usage:    "Directory with GAP reports",
				Required: true,
			},
			outFlag("Output summary TSV"),
		},
	}
}

func cmdSummarize(_ context.Context, cmd *cli.Command) error {
	list, err := gap.SummarizeDir(cmd.String(dirFlagName))
	if err != nil {
		return err
	}
	if out := cmd.String(outFlagName); out != "" {
		if err := writeOutput(out, func(w io.Writer) error { return gap.WriteSummaries(w, list) }); err != nil {
			return err
		}
	}
	return encode(cmd, list)
}
