// Package resolver finds a folder by a user-typed, partial or accented name.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/textfold"
)

const defaultMaxPages = 200

// Catalog lists folders page by page. An empty pageToken requests the first
// page.
type Catalog interface {
	ListFolders(ctx context.Context, pageToken string) (domain.ResourcePage, error)
}

type Resolver struct {
	catalog  Catalog
	maxPages int
}

func New(c Catalog) (*Resolver, error) {
	if c == nil {
		return nil, errors.New("resolver: catalog must not be nil")
	}
	return &Resolver{catalog: c, maxPages: defaultMaxPages}, nil
}

// Resolve pages through the whole catalog, then returns the first folder whose
// folded name equals the folded query, or else the first one containing it.
// found is false when neither pass matches.
func (r *Resolver) Resolve(ctx context.Context, query string) (domain.Resource, bool, error) {
	q := textfold.Fold(query)
	if q == "" {
		return domain.Resource{}, false, nil
	}
	all, err := r.enumerate(ctx)
	if err != nil {
		return domain.Resource{}, false, err
	}

	for _, res := range all {
		if textfold.Fold(res.Name) == q {
			return res, true, nil
		}
	}
	for _, res := range all {
		if strings.Contains(textfold.Fold(res.Name), q) {
			return res, true, nil
		}
	}
	return domain.Resource{}, false, nil
}

func (r *Resolver) enumerate(ctx context.Context) ([]domain.Resource, error) {
	var (
		all   []domain.Resource
		token string
		seen  = map[string]bool{}
	)
	for page := 0; page < r.maxPages; page++ {
		p, err := r.catalog.ListFolders(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("resolver: list folders page %d: %w", page+1, err)
		}
		all = append(all, p.Resources...)
		if p.NextPageToken == "" || seen[p.NextPageToken] {
			return all, nil
		}
		seen[p.NextPageToken] = true
		token = p.NextPageToken
	}
	return nil, fmt.Errorf("resolver: catalog exceeds %d pages", r.maxPages)
}
