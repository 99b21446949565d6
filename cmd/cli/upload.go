package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"ai-minutes-client/internal/bootstrap"
)

func uploadCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a recording for transcription and summarization",
		ArgsUsage: "<audio-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Meeting title (defaults to the file name)"},
		},
		Action: func(ctx *cli.Context) error {
			if err := requireAuth(c, ctx); err != nil {
				return err
			}
			path := ctx.Args().First()
			if path == "" {
				return cli.Exit("usage: minutes upload <audio-file>", 1)
			}

			progress, result, err := c.UploadService.Process(ctx.Context, path, ctx.String("title"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			// Processing can run for a while server-side; the percent is a
			// simulation, not a byte count.
			for update := range progress {
				fmt.Printf("\r%3d%%  %-28s", update.Percent, update.Phase)
			}
			fmt.Println()

			res := <-result
			if res.Err != nil {
				return cli.Exit(res.Err.Error(), 1)
			}
			color.Green("Done. Created document %s", res.Document.Id)
			fmt.Printf("View it with: minutes show %s\n", res.Document.Id)
			return nil
		},
	}
}
