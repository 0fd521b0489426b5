package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
)

const (
	FieldPrice       = "price"
	FieldAddress     = "address"
	FieldBedrooms    = "bedrooms"
	FieldDescription = "description"
	FieldFeatures    = "features"
)

// Selectors are CSS selectors for one source site's markup.
type Selectors struct {
	Price       string
	Address     string
	Bedrooms    string
	Description string
	Features    string
	ListingLink string
}

type compiledSelectors struct {
	price, address, bedrooms, description, features, listingLink cascadia.Selector
}

// FieldWarning records a field whose selector matched nothing.
type FieldWarning struct {
	Field    string `json:"field"`
	Selector string `json:"selector"`
}

// Extraction is a parsed listing plus the fields that could not be found.
type Extraction struct {
	Document domain.ListingDocument
	Warnings []FieldWarning
}

// Complete reports whether every field was found.
func (e *Extraction) Complete() bool { return len(e.Warnings) == 0 }

// Empty reports whether no field was found at all.
func (e *Extraction) Empty() bool {
	d := e.Document
	return d.Price == "" && d.Address == "" && d.Bedrooms == "" && d.Description == "" && len(d.Features) == 0
}

// ParseError describes the missing fields, or returns nil for a full parse.
func (e *Extraction) ParseError() error {
	if e.Complete() {
		return nil
	}
	fields := make([]string, 0, len(e.Warnings))
	for _, w := range e.Warnings {
		fields = append(fields, w.Field)
	}
	return domain.ParseError("extract", fmt.Sprintf("missing fields for %s: %s", e.Document.URL, strings.Join(fields, ", ")))
}

type Options struct {
	Selectors        Selectors
	IndexURLTemplate string
	Timeout          time.Duration
	// RequestsPerSecond caps page fetches; zero disables the limit.
	RequestsPerSecond float64
}

type Extractor struct {
	fetcher       Fetcher
	log           *logger.Logger
	sel           Selectors
	compiled      compiledSelectors
	indexTemplate string
	timeout       time.Duration
	limiter       *rate.Limiter
}

// NewExtractor compiles the selectors once; an invalid selector is a ConfigError.
func NewExtractor(fetcher Fetcher, opts Options, log *logger.Logger) (*Extractor, error) {
	compile := func(field, s string) (cascadia.Selector, error) {
		sel, err := cascadia.Compile(s)
		if err != nil {
			return nil, domain.ConfigError("new_extractor", fmt.Sprintf("selector %s %q: %v", field, s, err))
		}
		return sel, nil
	}

	var c compiledSelectors
	var err error
	targets := []struct {
		field string
		src   string
		dst   *cascadia.Selector
	}{
		{FieldPrice, opts.Selectors.Price, &c.price},
		{FieldAddress, opts.Selectors.Address, &c.address},
		{FieldBedrooms, opts.Selectors.Bedrooms, &c.bedrooms},
		{FieldDescription, opts.Selectors.Description, &c.description},
		{FieldFeatures, opts.Selectors.Features, &c.features},
		{"listing_link", opts.Selectors.ListingLink, &c.listingLink},
	}
	for _, t := range targets {
		if *t.dst, err = compile(t.field, t.src); err != nil {
			return nil, err
		}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	if log == nil {
		log = logger.NewNop()
	}
	return &Extractor{
		fetcher:       fetcher,
		log:           log.With("component", "extractor"),
		sel:           opts.Selectors,
		compiled:      c,
		indexTemplate: opts.IndexURLTemplate,
		timeout:       opts.Timeout,
		limiter:       limiter,
	}, nil
}

func (e *Extractor) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, domain.FetchError("rate_limit", err)
		}
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	raw, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(raw)
	if err != nil {
		return nil, domain.FetchError("parse_html", err)
	}
	return doc, nil
}

// Extract fetches one listing page and reads its fields. Fetch failures and
// timeouts are FetchErrors; missing fields only produce warnings.
func (e *Extractor) Extract(ctx context.Context, listingURL string) (*Extraction, error) {
	doc, err := e.fetch(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	out := &Extraction{Document: domain.ListingDocument{URL: listingURL}}
	first := func(field, src string, sel cascadia.Selector) string {
		v := textContent(sel.MatchFirst(doc))
		if v == "" {
			out.Warnings = append(out.Warnings, FieldWarning{Field: field, Selector: src})
		}
		return v
	}
	out.Document.Price = first(FieldPrice, e.sel.Price, e.compiled.price)
	out.Document.Address = first(FieldAddress, e.sel.Address, e.compiled.address)
	out.Document.Bedrooms = first(FieldBedrooms, e.sel.Bedrooms, e.compiled.bedrooms)
	out.Document.Description = first(FieldDescription, e.sel.Description, e.compiled.description)

	for _, n := range e.compiled.features.MatchAll(doc) {
		if t := textContent(n); t != "" {
			out.Document.Features = append(out.Document.Features, t)
		}
	}
	if len(out.Document.Features) == 0 {
		out.Warnings = append(out.Warnings, FieldWarning{Field: FieldFeatures, Selector: e.sel.Features})
	}

	if !out.Complete() {
		e.log.Warn("⚠️ listing parsed with missing fields", "url", listingURL, "missing", len(out.Warnings))
	}
	return out, nil
}

// IndexURL returns the address of the given 1-based index page.
func (e *Extractor) IndexURL(page int) string {
	return fmt.Sprintf(e.indexTemplate, page)
}

// DiscoverListingURLs returns the absolute detail links of one index page in
// page order, without duplicates. An empty slice means the index is exhausted
// or the site served a page without listings; the two are indistinguishable.
func (e *Extractor) DiscoverListingURLs(ctx context.Context, page int) ([]string, error) {
	indexURL := e.IndexURL(page)
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, domain.ConfigError("discover", fmt.Sprintf("index url %q: %v", indexURL, err))
	}
	doc, err := e.fetch(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	links := []string{}
	for _, n := range e.compiled.listingLink.MatchAll(doc) {
		href := strings.TrimSpace(attr(n, "href"))
		if href == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		abs.RawQuery = ""
		abs.Fragment = ""
		s := abs.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		links = append(links, s)
	}
	e.log.Debug("🔎 discovered listings", "page", page, "count", len(links))
	return links, nil
}
