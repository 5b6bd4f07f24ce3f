package research

import (
	"context"
	"sync"
	"sync/atomic"

	"investorbase/internal/models"
	"investorbase/internal/providers"
	"investorbase/internal/storage"
)

type fakeCompanies struct {
	lookups atomic.Int32
	byID    map[string]models.Company
}

func newFakeCompanies(cs ...models.Company) *fakeCompanies {
	f := &fakeCompanies{byID: map[string]models.Company{}}
	for _, c := range cs {
		f.byID[c.CompanyID] = c
	}
	return f
}

func (f *fakeCompanies) GetCompany(_ context.Context, id string) (models.Company, error) {
	f.lookups.Add(1)
	c, ok := f.byID[id]
	if !ok {
		return models.Company{}, storage.ErrNotFound
	}
	return c, nil
}

// fakeRecords enforces the same pending-only transitions as the SQL guards.
type fakeRecords struct {
	mu          sync.Mutex
	recs        map[string]models.ResearchRecord
	gets        atomic.Int32
	completeErr error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{recs: map[string]models.ResearchRecord{}}
}

func (f *fakeRecords) CreatePending(_ context.Context, rec models.ResearchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recs[rec.ResearchID]; ok {
		return nil
	}
	rec.Status = models.StatusPending
	f.recs[rec.ResearchID] = rec
	return nil
}

func (f *fakeRecords) Complete(_ context.Context, id string, c storage.Completion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	rec, ok := f.recs[id]
	if !ok || rec.Status != models.StatusPending {
		return storage.ErrRecordTerminal
	}
	at := c.CompletedAt
	rec.Status = models.StatusCompleted
	rec.RawText = c.RawText
	rec.StructuredItems = c.Items
	rec.Sources = c.Sources
	rec.Provider = c.Provider
	rec.Model = c.Model
	rec.CompletedAt = &at
	f.recs[id] = rec
	return nil
}

func (f *fakeRecords) Fail(_ context.Context, id, msg, provider, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok || rec.Status != models.StatusPending {
		return storage.ErrRecordTerminal
	}
	rec.Status = models.StatusFailed
	rec.ErrorMessage = msg
	rec.Provider = provider
	rec.Model = model
	f.recs[id] = rec
	return nil
}

func (f *fakeRecords) Get(_ context.Context, id string) (models.ResearchRecord, error) {
	f.gets.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return models.ResearchRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRecords) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

type fakeAudit struct {
	mu    sync.Mutex
	calls []storage.LLMCallRecord
}

func (f *fakeAudit) Insert(_ context.Context, rec storage.LLMCallRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rec)
	return nil
}

type providerFunc func(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error)

func (f providerFunc) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	return f(ctx, req)
}

// countingProvider counts calls to the wrapped provider.
type countingProvider struct {
	inner providers.LLMProvider
	calls atomic.Int32
}

func (c *countingProvider) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	c.calls.Add(1)
	return c.inner.Generate(ctx, req)
}

func managerWith(name string, p providers.LLMProvider) *providers.Manager {
	return providers.NewStaticManager(providers.NamedLLMProvider{
		Ref:      providers.ProviderRef{Raw: name, Name: name},
		Provider: p,
	})
}
