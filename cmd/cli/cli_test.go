package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ai-minutes-client/internal/entity"
)

func TestDocumentTable(t *testing.T) {
	edited := "edited"
	docs := []entity.Document{
		{Id: "d1", Title: "Standup", CreatedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{Id: "d2", Title: "Planning", CreatedAt: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), EditedSummary: &edited},
	}

	out := documentTable(docs)
	assert.Contains(t, out, "d1")
	assert.Contains(t, out, "Standup")
	assert.Contains(t, out, "2026-03-02")
	assert.Contains(t, out, "yes")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "long titl…", truncate("long title here", 10))
}
