package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"altelier/internal/domain"
)

type ArtworkWriter interface {
	Upsert(ctx context.Context, a domain.Artwork) (*domain.Artwork, error)
}

// CSVImporter reads a gallery catalog export and inserts/updates artworks.
// Expected header: slug,title,artist,description,price_cents,currency.
type CSVImporter struct {
	reader *csv.Reader
	repo   ArtworkWriter
}

func NewCSVImporter(r io.Reader, repo ArtworkWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{reader: csvr, repo: repo}
}

// Run parses CSV rows and upserts artworks, returning the count imported.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		artwork, ok := parseRow(record, index)
		if !ok {
			continue
		}
		if _, err := i.repo.Upsert(ctx, artwork); err != nil {
			return imported, fmt.Errorf("upsert artwork %s: %w", artwork.Slug, err)
		}
		imported++
	}

	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return index
}

func parseRow(record []string, index map[string]int) (domain.Artwork, bool) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	slug := field("slug")
	title := field("title")
	if slug == "" || title == "" {
		return domain.Artwork{}, false
	}

	cents, err := strconv.ParseInt(field("price_cents"), 10, 64)
	if err != nil || cents < 0 {
		return domain.Artwork{}, false
	}
	currency := field("currency")
	if currency == "" {
		return domain.Artwork{}, false
	}

	return domain.Artwork{
		Slug:        slug,
		Title:       title,
		Artist:      field("artist"),
		Description: field("description"),
		PriceCents:  cents,
		Currency:    strings.ToUpper(currency),
		Available:   true,
	}, true
}
