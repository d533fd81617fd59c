package places

import (
	"context"
	"fmt"
	"strings"

	"github.com/kayz/kakaomap-mcp/internal/search"
	"golang.org/x/sync/errgroup"
)

const unknownPlaceName = "Unknown Place"

// Searcher is the subset of the Kakao client the pipeline needs. All methods
// swallow upstream failures and return empty values.
type Searcher interface {
	Places(ctx context.Context, query string) []search.Place
	RelatedDocuments(ctx context.Context, query string) []search.WebDocument
	Image(ctx context.Context, query string) search.ImageDocument
}

// EnrichedPlace is a place merged with its commentary and image. It is the
// JSON payload of a per-place progress event.
type EnrichedPlace struct {
	PlaceName    string               `json:"place_name"`
	AddressName  string               `json:"address_name"`
	CategoryName string               `json:"category_name"`
	PlaceURL     string               `json:"place_url"`
	Phone        string               `json:"phone"`
	ImageURL     string               `json:"image_url"`
	Comments     []search.WebDocument `json:"comments"`
}

type Enricher struct {
	searcher Searcher
}

func NewEnricher(s Searcher) *Enricher {
	return &Enricher{searcher: s}
}

// Enrich fetches web documents and an image for p concurrently, both keyed by
// the place name rather than the user's query, and merges them.
func (e *Enricher) Enrich(ctx context.Context, p search.Place) (EnrichedPlace, error) {
	name := placeName(p)

	var (
		docs  []search.WebDocument
		image search.ImageDocument
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverInto(&err, "web documents")
		docs = e.searcher.RelatedDocuments(gctx, name)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverInto(&err, "image")
		image = e.searcher.Image(gctx, name)
		return nil
	})
	if err := g.Wait(); err != nil {
		return EnrichedPlace{}, fmt.Errorf("enrich %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return EnrichedPlace{}, fmt.Errorf("enrich %s: %w", name, err)
	}

	comments := append(make([]search.WebDocument, 0, len(docs)), docs...)

	return EnrichedPlace{
		PlaceName:    name,
		AddressName:  p.AddressName,
		CategoryName: p.CategoryName,
		PlaceURL:     p.PlaceURL,
		Phone:        p.Phone,
		ImageURL:     image.ImageURL,
		Comments:     comments,
	}, nil
}

func placeName(p search.Place) string {
	if strings.TrimSpace(p.PlaceName) == "" {
		return unknownPlaceName
	}
	return p.PlaceName
}

func recoverInto(err *error, what string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("fetch %s: panic: %v", what, r)
	}
}
