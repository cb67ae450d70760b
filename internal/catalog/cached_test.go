package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visit-api/internal/model"
)

type countingResolver struct {
	calls int
	err   error
}

func (r *countingResolver) Search(_ context.Context, kind model.CatalogKind, q model.CatalogQuery) (*model.CatalogPage, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &model.CatalogPage{
		Entries:  []model.CatalogEntry{{ID: "1", Label: string(kind) + ":" + q.Filter}},
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    1,
	}, nil
}

func TestCachedResolverServesRepeatsFromCache(t *testing.T) {
	next := &countingResolver{}
	r := NewCachedResolver(next, time.Minute)
	q := model.CatalogQuery{Filter: "amox", Page: 1, PageSize: 20}

	first, err := r.Search(context.Background(), model.CatalogMedicines, q)
	require.NoError(t, err)
	second, err := r.Search(context.Background(), model.CatalogMedicines, q)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Same(t, first, second)
}

func TestCachedResolverKeysOnKindFilterAndPage(t *testing.T) {
	next := &countingResolver{}
	r := NewCachedResolver(next, time.Minute)

	_, err := r.Search(context.Background(), model.CatalogMedicines, model.CatalogQuery{Filter: "amox"})
	require.NoError(t, err)
	_, err = r.Search(context.Background(), model.CatalogLabTests, model.CatalogQuery{Filter: "amox"})
	require.NoError(t, err)
	_, err = r.Search(context.Background(), model.CatalogMedicines, model.CatalogQuery{Filter: "amox", Page: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, next.calls)
}

func TestCachedResolverNormalizesBeforeCaching(t *testing.T) {
	next := &countingResolver{}
	r := NewCachedResolver(next, time.Minute)

	// Page 0 and page 1 are the same query after normalization.
	_, err := r.Search(context.Background(), model.CatalogMedicines, model.CatalogQuery{Filter: "amox", Page: 0})
	require.NoError(t, err)
	_, err = r.Search(context.Background(), model.CatalogMedicines, model.CatalogQuery{Filter: "amox", Page: 1, PageSize: 20})
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
}

func TestCachedResolverDoesNotCacheFailures(t *testing.T) {
	next := &countingResolver{err: errors.New("catalog down")}
	r := NewCachedResolver(next, time.Minute)
	q := model.CatalogQuery{Filter: "amox"}

	_, err := r.Search(context.Background(), model.CatalogMedicines, q)
	require.Error(t, err)

	next.err = nil
	page, err := r.Search(context.Background(), model.CatalogMedicines, q)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Equal(t, 2, next.calls)
}
