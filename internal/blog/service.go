package blog

import (
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"blogdex/internal/search"
)

// Options are the optional collaborators and settings of a Service.
type Options struct {
	SiteID    string
	Location  *time.Location // archive bucketing, defaults to UTC
	Overrides Overrides
	Vault     Vault // nil disables snapshots
	Snippets  search.SnippetOptions
}

// Service is the index engine: it keeps the index store current with the
// content tree on access and answers listing, facet, search and similarity
// queries over it.
type Service struct {
	database  Database
	tree      ContentTree
	parser    Parser
	logger    Logger
	clock     Clock
	vault     Vault
	siteID    string
	loc       *time.Location
	overrides Overrides
	analyzer  *search.Analyzer
	snippets  *search.Highlighter

	syncs singleflight.Group
}

// NewService creates a Service with the provided dependencies.
func NewService(database Database, tree ContentTree, parser Parser, logger Logger, clock Clock, opts Options) (*Service, error) {
	highlighter, err := search.NewHighlighter(opts.Snippets)
	if err != nil {
		return nil, fmt.Errorf("creating highlighter: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	overrides := opts.Overrides
	if overrides == nil {
		overrides = NoOverrides{}
	}

	return &Service{
		database:  database,
		tree:      tree,
		parser:    parser,
		logger:    logger,
		clock:     clock,
		vault:     opts.Vault,
		siteID:    opts.SiteID,
		loc:       loc,
		overrides: overrides,
		analyzer:  search.Default(),
		snippets:  highlighter,
	}, nil
}

// Location returns the time zone used for archive bucketing.
func (s *Service) Location() *time.Location {
	return s.loc
}
