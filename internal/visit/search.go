package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/visit-api/internal/model"
	apperrors "github.com/jwalitptl/visit-api/pkg/errors"
)

// searchSession is the modal search-and-bind flow over one catalog, aimed
// at one slot of one collection. All fields are guarded by the owning
// orchestrator's mutex; completions arriving after the session closed or
// after a newer request was issued are dropped.
type searchSession struct {
	open       bool
	collection model.CollectionKind
	index      int
	filter     string
	page       int
	seq        uint64
	loading    bool
	failed     bool
	results    *model.CatalogPage
	timer      *time.Timer
}

// SearchState is the renderable view of an open search session.
type SearchState struct {
	Collection model.CollectionKind `json:"collection"`
	Index      int                  `json:"index"`
	Filter     string               `json:"filter"`
	Page       int                  `json:"page"`
	Loading    bool                 `json:"loading"`
	Failed     bool                 `json:"failed"`
	Results    *model.CatalogPage   `json:"results,omitempty"`
}

func (s *searchSession) state() SearchState {
	return SearchState{
		Collection: s.collection,
		Index:      s.index,
		Filter:     s.filter,
		Page:       s.page,
		Loading:    s.loading,
		Failed:     s.failed,
		Results:    s.results,
	}
}

// OpenSearch starts a search session for one slot. Filter and pagination
// always start fresh; a previous session's state is never resumed. The
// first page of the unfiltered catalog is queried immediately.
func (o *Orchestrator) OpenSearch(kind model.CollectionKind, index int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return err
	}
	if !kind.Searchable() {
		return apperrors.NewBadRequest(fmt.Sprintf("collection %q has no catalog", kind), nil)
	}
	if index < 0 || index >= o.collectionLen(kind) {
		return apperrors.NewBadRequest("slot index out of range", nil)
	}

	o.closeSearchLocked()
	o.search = searchSession{
		open:       true,
		collection: kind,
		index:      index,
		page:       1,
	}
	o.issueSearchLocked(false)
	return nil
}

// SetSearchFilter updates the live filter. The catalog query is debounced:
// rapid keystrokes collapse into one request for the final value, and a
// stale in-flight result never overwrites a newer one.
func (o *Orchestrator) SetSearchFilter(filter string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return err
	}
	if !o.search.open {
		return apperrors.NewConflict("no search session open", nil)
	}
	o.search.filter = filter
	o.search.page = 1
	o.issueSearchLocked(true)
	return nil
}

// SetSearchPage flips the page for the current filter. Page changes
// re-issue the query immediately; only keystrokes are debounced.
func (o *Orchestrator) SetSearchPage(page int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return err
	}
	if !o.search.open {
		return apperrors.NewConflict("no search session open", nil)
	}
	if page < 1 {
		page = 1
	}
	o.search.page = page
	o.issueSearchLocked(false)
	return nil
}

// PickSearchResult binds the chosen catalog entry into the slot the session
// was opened for and closes the session. The bound label is cached on the
// row for display.
func (o *Orchestrator) PickSearchResult(catalogID, label string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return err
	}
	if !o.search.open {
		return apperrors.NewConflict("no search session open", nil)
	}
	if catalogID == "" {
		return apperrors.NewBadRequest("catalog id is required", nil)
	}

	index := o.search.index
	switch o.search.collection {
	case model.CollectionMedications:
		o.draft.Medications = ReplaceAt(o.draft.Medications, index, func(m model.MedicationItem) model.MedicationItem {
			m.CatalogID = catalogID
			m.Name = label
			return m
		})
	case model.CollectionLabTests:
		o.draft.LabTests = ReplaceAt(o.draft.LabTests, index, func(t model.LabTestItem) model.LabTestItem {
			t.CatalogID = catalogID
			t.TestName = label
			return t
		})
	case model.CollectionRays:
		o.draft.Rays = ReplaceAt(o.draft.Rays, index, func(t model.RadiologyTestItem) model.RadiologyTestItem {
			t.CatalogID = catalogID
			t.TestName = label
			return t
		})
	}

	o.closeSearchLocked()
	return nil
}

// CancelSearch closes the session without binding anything. Any in-flight
// result is discarded on arrival.
func (o *Orchestrator) CancelSearch() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeSearchLocked()
}

func (o *Orchestrator) closeSearchLocked() {
	if o.search.timer != nil {
		o.search.timer.Stop()
		o.search.timer = nil
	}
	// Bump the sequence so completions racing the close are refused.
	o.search.seq++
	o.search.open = false
	o.search.results = nil
	o.search.loading = false
	o.search.failed = false
}

// issueSearchLocked tags a request with the next sequence number and either
// fires it immediately or schedules it behind the debounce window. Only the
// latest issued sequence may apply its result: last request wins.
func (o *Orchestrator) issueSearchLocked(debounced bool) {
	if o.search.timer != nil {
		o.search.timer.Stop()
		o.search.timer = nil
	}

	o.search.seq++
	seq := o.search.seq
	kind := o.search.collection.Catalog()
	query := model.CatalogQuery{Filter: o.search.filter, Page: o.search.page}
	o.search.loading = true
	o.search.failed = false

	run := func() { o.runSearch(seq, kind, query) }
	if debounced {
		o.search.timer = time.AfterFunc(o.deps.Debounce, run)
		return
	}
	go run()
}

func (o *Orchestrator) runSearch(seq uint64, kind model.CatalogKind, query model.CatalogQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), o.deps.FetchTimeout)
	defer cancel()

	page, err := o.deps.Catalogs.Search(ctx, kind, query)

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.search.open || seq != o.search.seq {
		return
	}

	o.search.loading = false
	if err != nil {
		o.search.failed = true
		o.search.results = nil
		o.deps.Logger.Error(err, "catalog search failed",
			"catalog", string(kind), "filter", query.Filter)
		return
	}
	o.search.results = page
}

func (o *Orchestrator) collectionLen(kind model.CollectionKind) int {
	switch kind {
	case model.CollectionMedications:
		return len(o.draft.Medications)
	case model.CollectionLabTests:
		return len(o.draft.LabTests)
	case model.CollectionRays:
		return len(o.draft.Rays)
	case model.CollectionDental:
		return len(o.draft.DentalProcedures)
	case model.CollectionAttachments:
		return len(o.draft.Attachments)
	}
	return 0
}
