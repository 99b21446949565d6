package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ai-minutes-client/internal/bootstrap"
	"ai-minutes-client/internal/entity"
)

func documentTable(docs []entity.Document) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Title", "Created", "Edited"})

	for _, doc := range docs {
		edited := ""
		if doc.EditedSummary != nil {
			edited = "yes"
		}
		tw.AppendRow(table.Row{
			doc.Id,
			truncate(doc.Title, 40),
			doc.CreatedAt.Format("2006-01-02"),
			edited,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func printSignedIn(c *bootstrap.Container) {
	snap := c.SessionService.Snapshot()
	if snap.CurrentUser != nil {
		color.Green("Signed in as %s <%s>", snap.CurrentUser.Name, snap.CurrentUser.Email)
		return
	}
	fmt.Println("Signed in.")
}
