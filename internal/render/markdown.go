package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"ai-minutes-client/internal/entity"
)

// Renderer converts a document's effective content (markdown) into HTML.
// Rendering is memoized per document revision; an edit bumps UpdatedAt on
// the server, which changes the cache key.
type Renderer struct {
	md    goldmark.Markdown
	cache *cache.Cache
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		cache: cache.New(1*time.Hour, 10*time.Minute),
	}
}

// Document renders doc's effective content.
func (r *Renderer) Document(doc *entity.Document) (string, error) {
	key := fmt.Sprintf("%s@%d", doc.Id, doc.UpdatedAt.UnixNano())
	if html, found := r.cache.Get(key); found {
		return html.(string), nil
	}

	html, err := r.Markdown(doc.EffectiveContent())
	if err != nil {
		return "", err
	}
	r.cache.Set(key, html, cache.DefaultExpiration)
	return html, nil
}

// Markdown renders raw markdown without memoization.
func (r *Renderer) Markdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
