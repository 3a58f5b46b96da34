package document

import (
	"context"
	"fmt"
	"sync"
	"time"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/domain"
	"facturio/internal/domain/billing/kind"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	mu    sync.Mutex
	docs  map[id.ID]*Document
	lines map[id.ID][]Line

	failSaveLines bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:  make(map[id.ID]*Document),
		lines: make(map[id.ID][]Line),
	}
}

func (r *fakeRepo) snapshot() (map[id.ID]*Document, map[id.ID][]Line) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := make(map[id.ID]*Document, len(r.docs))
	for k, v := range r.docs {
		cp := *v
		docs[k] = &cp
	}
	lines := make(map[id.ID][]Line, len(r.lines))
	for k, v := range r.lines {
		lines[k] = append([]Line(nil), v...)
	}
	return docs, lines
}

func (r *fakeRepo) restore(docs map[id.ID]*Document, lines map[id.ID][]Line) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = docs
	r.lines = lines
}

func (r *fakeRepo) Create(ctx context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, docID id.ID) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok || doc.DeletionMark {
		return nil, apperror.NewNotFound("document", docID.String())
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeRepo) GetByNumber(ctx context.Context, k kind.DocumentKind, number string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.Kind == k && doc.Number == number {
			cp := *doc
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("document", number)
}

func (r *fakeRepo) Update(ctx context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("document", doc.ID.String())
	}
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, docID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return apperror.NewNotFound("document", docID.String())
	}
	doc.DeletionMark = true
	return nil
}

func (r *fakeRepo) GetLines(ctx context.Context, docID id.ID) ([]Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Line(nil), r.lines[docID]...), nil
}

func (r *fakeRepo) SaveLines(ctx context.Context, docID id.ID, lines []Line) error {
	if r.failSaveLines {
		return fmt.Errorf("simulated line write failure")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[docID] = append([]Line(nil), lines...)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Document], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result domain.ListResult[*Document]
	for _, doc := range r.docs {
		if doc.DeletionMark && !filter.IncludeDeleted {
			continue
		}
		if filter.Kind != nil && doc.Kind != *filter.Kind {
			continue
		}
		cp := *doc
		result.Items = append(result.Items, &cp)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, docID id.ID) (*Document, error) {
	return r.GetByID(ctx, docID)
}

// fakeNumbers hands out sequential numbers per prefix.
type fakeNumbers struct {
	mu   sync.Mutex
	next map[string]int
}

func newFakeNumbers() *fakeNumbers {
	return &fakeNumbers{next: make(map[string]int)}
}

func (n *fakeNumbers) NextDocumentNumber(ctx context.Context, companyID id.ID, prefix string, issueDate time.Time) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next[prefix]++
	return fmt.Sprintf("%s-%d-%05d", prefix, issueDate.Year(), n.next[prefix]), nil
}

// fakeTxManager restores the repo's state when fn fails, mimicking a
// database rollback.
type fakeTxManager struct {
	repo *fakeRepo
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	docs, lines := m.repo.snapshot()
	if err := fn(ctx); err != nil {
		m.repo.restore(docs, lines)
		return err
	}
	return nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, newFakeNumbers(), nil, nil, &fakeTxManager{repo: repo})
}
