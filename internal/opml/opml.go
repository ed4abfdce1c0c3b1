// Package opml imports and exports the news source catalogue as OPML.
package opml

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/database"
	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline is a folder or a feed.
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// SourceEntry is one feed from an OPML document.
type SourceEntry struct {
	// Category is the top-level folder, empty for feeds at the root.
	Category string
	Name     string
	URL      string
}

// Parse reads an OPML document and flattens it to source entries.
func Parse(r io.Reader) ([]SourceEntry, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}
	var entries []SourceEntry
	var walk func(outlines []Outline, category string)
	walk = func(outlines []Outline, category string) {
		for _, o := range outlines {
			switch {
			case o.XMLURL != "":
				name := o.Title
				if name == "" {
					name = o.Text
				}
				if name == "" {
					name = o.XMLURL
				}
				entries = append(entries, SourceEntry{Category: category, Name: name, URL: o.XMLURL})
			case len(o.Outlines) > 0:
				// Nested folders collapse into their top-level folder.
				next := category
				if next == "" {
					next = strings.TrimSpace(o.Text)
					if next == "" {
						next = strings.TrimSpace(o.Title)
					}
				}
				walk(o.Outlines, next)
			}
		}
	}
	walk(doc.Body.Outlines, "")
	return entries, nil
}

// ImportResult counts what an import did.
type ImportResult struct {
	Added   int
	Skipped int
}

// Import creates a news source per entry, creating folder categories as
// needed. Sources whose feed URL already exists are skipped.
func Import(ctx context.Context, db database.Store, entries []SourceEntry, autoPublish bool) (ImportResult, error) {
	var res ImportResult
	categories := make(map[string]int64)
	for _, e := range entries {
		src := &model.NewsSource{
			Name:             e.Name,
			FeedURL:          e.URL,
			ReliabilityScore: 0.5,
			AutoPublish:      autoPublish,
		}
		if e.Category != "" {
			id, ok := categories[e.Category]
			if !ok {
				var err error
				id, err = db.GetOrCreateCategory(ctx, e.Category)
				if err != nil {
					return res, fmt.Errorf("category %q: %w", e.Category, err)
				}
				categories[e.Category] = id
			}
			src.DefaultCategoryID = &id
		}
		_, created, err := db.GetOrCreateSource(ctx, src)
		if err != nil {
			return res, fmt.Errorf("source %q: %w", e.URL, err)
		}
		if created {
			res.Added++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

// Export renders sources with a feed as OPML, one folder per default
// category. Sources without a category sit at the root.
func Export(title string, sources []model.NewsSource) ([]byte, error) {
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: time.Now().Format(time.RFC1123Z),
		},
	}

	folders := make(map[string]*Outline)
	var names []string
	var root []Outline
	for _, s := range sources {
		if s.FeedURL == "" {
			continue
		}
		feed := Outline{Text: s.Name, Title: s.Name, Type: "rss", XMLURL: s.FeedURL}
		if s.DefaultCategory == "" {
			root = append(root, feed)
			continue
		}
		fo, ok := folders[s.DefaultCategory]
		if !ok {
			fo = &Outline{Text: s.DefaultCategory, Title: s.DefaultCategory}
			folders[s.DefaultCategory] = fo
			names = append(names, s.DefaultCategory)
		}
		fo.Outlines = append(fo.Outlines, feed)
	}

	sort.Strings(names)
	for _, name := range names {
		doc.Body.Outlines = append(doc.Body.Outlines, *folders[name])
	}
	doc.Body.Outlines = append(doc.Body.Outlines, root...)

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}
