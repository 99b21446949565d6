package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"ai-minutes-client/internal/bootstrap"
	"ai-minutes-client/internal/service"
)

func exportCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a document to PDF",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "File base name (without .pdf); derived from the title by default"},
			&cli.StringFlag{Name: "out", Value: ".", Usage: "Output directory"},
			&cli.BoolFlag{Name: "no-header", Usage: "Omit the centered title header"},
			&cli.BoolFlag{Name: "no-date", Usage: "Omit the creation date line"},
		},
		Action: func(ctx *cli.Context) error {
			if err := requireAuth(c, ctx); err != nil {
				return err
			}
			id := ctx.Args().First()
			if id == "" {
				return cli.Exit("usage: minutes export <id>", 1)
			}

			doc := c.DocumentService.FetchByID(ctx.Context, id)
			if doc == nil {
				return cli.Exit(c.DocumentService.Err(), 1)
			}

			base := ctx.String("name")
			if base == "" {
				base = c.ExportService.DefaultBaseName(doc.Title)
			}

			fmt.Println("Generating PDF...")
			path, err := c.ExportService.Export(ctx.Context, doc, service.ExportOptions{
				BaseName:            base,
				IncludeHeader:       !ctx.Bool("no-header"),
				IncludeMetadataDate: !ctx.Bool("no-date"),
				OutputDir:           ctx.String("out"),
			})
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			color.Green("Exported %s", path)
			return nil
		},
	}
}
