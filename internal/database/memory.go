package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"listing-portal/internal/models"
)

// MemoryStore keeps every record in maps guarded by one mutex. It backs
// `database.type: memory` and the service and handler tests. Uniqueness
// checks happen under the write lock, so it gives the same conflict
// guarantees as the unique indexes of the SQL store.
type MemoryStore struct {
	mu sync.RWMutex

	accounts  map[string]models.Account
	props     map[string]models.Property
	enquiries map[string]models.Enquiry
	pages     map[string]models.Page
	changes   []models.PropertyChange
	deletes   []models.DeleteLog

	nextChangeID uint
	nextDeleteID uint
	now          func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[string]models.Account),
		props:     make(map[string]models.Property),
		enquiries: make(map[string]models.Enquiry),
		pages:     make(map[string]models.Page),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Close() error { return nil }

// Accounts

func (m *MemoryStore) CreateAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return ErrDuplicate
		}
	}
	if _, ok := m.accounts[a.ID]; ok {
		return ErrDuplicate
	}
	if a.Role == "" {
		a.Role = models.RoleUser
	}
	if a.Status == "" {
		a.Status = models.AccountStatusActive
	}
	now := m.now()
	a.CreatedAt, a.UpdatedAt = now, now
	m.accounts[a.ID] = *a
	return nil
}

func (m *MemoryStore) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range m.accounts {
		if a.Email == email {
			found := a
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateAccount(ctx context.Context, id string, mutate func(a *models.Account) error) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := current
	if err := mutate(&working); err != nil {
		return nil, err
	}
	working.ID = id
	working.Email = strings.ToLower(strings.TrimSpace(working.Email))
	if working.Email != current.Email {
		for otherID, other := range m.accounts {
			if otherID != id && other.Email == working.Email {
				return nil, ErrDuplicate
			}
		}
	}
	working.UpdatedAt = m.now()
	m.accounts[id] = working
	return &working, nil
}

func (m *MemoryStore) DeleteAccount(ctx context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.accounts, id)
	return &a, nil
}

func (m *MemoryStore) CountAccountsByStatus(ctx context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64)
	for _, a := range m.accounts {
		out[string(a.Status)]++
	}
	return out, nil
}

// Properties

func (m *MemoryStore) slugTaken(slug, exceptID string) bool {
	for id, p := range m.props {
		if id != exceptID && p.Slug == slug {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreateProperty(ctx context.Context, p *models.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.props[p.ID]; ok || m.slugTaken(p.Slug, "") {
		return ErrDuplicate
	}
	if p.Status == "" {
		p.Status = models.PropertyStatusDraft
	}
	now := m.now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.props[p.ID] = *p.Clone()
	return nil
}

func (m *MemoryStore) GetPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.props[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *MemoryStore) GetPropertyBySlug(ctx context.Context, slug string) (*models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.props {
		if p.Slug == slug {
			return p.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func matchProperty(p *models.Property, f PropertyFilter) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if p.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if city := strings.ToLower(strings.TrimSpace(f.City)); city != "" && !strings.Contains(strings.ToLower(p.City), city) {
		return false
	}
	if f.Type != "" && p.PropertyType != f.Type {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Premium != nil && p.Premium != *f.Premium {
		return false
	}
	if f.CreatedBy != "" && p.CreatedBy != f.CreatedBy {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Location), q) &&
			!strings.Contains(strings.ToLower(p.City), q) {
			return false
		}
	}
	return true
}

func (m *MemoryStore) ListProperties(ctx context.Context, f PropertyFilter) (*PropertyPage, error) {
	limit, offset := normalizePaging(f.Limit, f.Offset)

	m.mu.RLock()
	matched := make([]models.Property, 0)
	for _, p := range m.props {
		if matchProperty(&p, f) {
			matched = append(matched, *p.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Premium != matched[j].Premium {
			return matched[i].Premium
		}
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	page := &PropertyPage{Items: []models.Property{}, Total: int64(len(matched)), Limit: limit, Offset: offset}
	if offset < len(matched) {
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Items = matched[offset:end]
	}
	return page, nil
}

func (m *MemoryStore) UpdateProperty(ctx context.Context, id string, mutate func(p *models.Property) error) (*models.Property, *models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.props[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	before := current.Clone()
	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, nil, err
	}
	working.ID = id
	working.CreatedAt = before.CreatedAt
	if working.Slug != before.Slug && m.slugTaken(working.Slug, id) {
		return nil, nil, ErrDuplicate
	}
	working.UpdatedAt = m.now()
	m.props[id] = *working.Clone()
	return before, working, nil
}

func (m *MemoryStore) DeleteProperty(ctx context.Context, id string) (*models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.props[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.props, id)
	for eid, e := range m.enquiries {
		if e.PropertyID != nil && *e.PropertyID == id {
			e.PropertyID = nil
			m.enquiries[eid] = e
		}
	}
	return &p, nil
}

func (m *MemoryStore) CountPropertiesByStatus(ctx context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64)
	for _, p := range m.props {
		out[string(p.Status)]++
	}
	return out, nil
}

// Enquiries

func (m *MemoryStore) CreateEnquiry(ctx context.Context, e *models.Enquiry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.enquiries[e.ID]; ok {
		return ErrDuplicate
	}
	if e.Status == "" {
		e.Status = models.EnquiryStatusNew
	}
	now := m.now()
	e.CreatedAt, e.UpdatedAt = now, now
	m.enquiries[e.ID] = *e
	return nil
}

func (m *MemoryStore) GetEnquiry(ctx context.Context, id string) (*models.Enquiry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.enquiries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) ListEnquiries(ctx context.Context, f EnquiryFilter) ([]models.Enquiry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Enquiry, 0)
	for _, e := range m.enquiries {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.ClosedBefore != nil && (e.Status != models.EnquiryStatusClosed || !e.UpdatedAt.Before(*f.ClosedBefore)) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateEnquiry(ctx context.Context, id string, mutate func(e *models.Enquiry) error) (*models.Enquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.enquiries[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := current
	if err := mutate(&working); err != nil {
		return nil, err
	}
	working.ID = id
	working.UpdatedAt = m.now()
	m.enquiries[id] = working
	return &working, nil
}

func (m *MemoryStore) DeleteEnquiry(ctx context.Context, id string) (*models.Enquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.enquiries[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.enquiries, id)
	return &e, nil
}

func (m *MemoryStore) CountEnquiriesByStatus(ctx context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64)
	for _, e := range m.enquiries {
		out[string(e.Status)]++
	}
	return out, nil
}

func (m *MemoryStore) PurgeEnquiry(ctx context.Context, id string, entry *models.DeleteLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.enquiries[id]; !ok {
		return ErrNotFound
	}
	delete(m.enquiries, id)
	m.appendDeleteLog(entry)
	return nil
}

// Pages

func (m *MemoryStore) pageSlugTaken(slug, exceptID string) bool {
	for id, p := range m.pages {
		if id != exceptID && p.Slug == slug {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreatePage(ctx context.Context, p *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pages[p.ID]; ok || m.pageSlugTaken(p.Slug, "") {
		return ErrDuplicate
	}
	now := m.now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.pages[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetPageByID(ctx context.Context, id string) (*models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) GetPageBySlug(ctx context.Context, slug string) (*models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.pages {
		if p.Slug == slug {
			found := p
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListPages(ctx context.Context) ([]models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Page, 0, len(m.pages))
	for _, p := range m.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryStore) UpsertPage(ctx context.Context, p *models.Page) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, existing := range m.pages {
		if existing.Slug != p.Slug {
			continue
		}
		existing.Title = p.Title
		existing.Content = p.Content
		existing.MetaTitle = p.MetaTitle
		existing.MetaDescription = p.MetaDescription
		existing.UpdatedAt = now
		m.pages[id] = existing
		return &existing, nil
	}
	stored := *p
	stored.CreatedAt, stored.UpdatedAt = now, now
	m.pages[stored.ID] = stored
	return &stored, nil
}

func (m *MemoryStore) UpdatePage(ctx context.Context, id string, mutate func(p *models.Page) error) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.pages[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := current
	if err := mutate(&working); err != nil {
		return nil, err
	}
	working.ID = id
	if working.Slug != current.Slug && m.pageSlugTaken(working.Slug, id) {
		return nil, ErrDuplicate
	}
	working.UpdatedAt = m.now()
	m.pages[id] = working
	return &working, nil
}

func (m *MemoryStore) DeletePage(ctx context.Context, id string) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pages[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.pages, id)
	return &p, nil
}

// Audit

func (m *MemoryStore) RecordPropertyChanges(ctx context.Context, changes []models.PropertyChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range changes {
		m.nextChangeID++
		c.ID = m.nextChangeID
		m.changes = append(m.changes, c)
	}
	return nil
}

func (m *MemoryStore) ListPropertyChanges(ctx context.Context, propertyID string, limit int) ([]models.PropertyChange, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.PropertyChange, 0)
	for i := len(m.changes) - 1; i >= 0 && len(out) < limit; i-- {
		if m.changes[i].PropertyID == propertyID {
			out = append(out, m.changes[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) appendDeleteLog(entry *models.DeleteLog) {
	m.nextDeleteID++
	entry.ID = m.nextDeleteID
	if entry.DeletedAt.IsZero() {
		entry.DeletedAt = m.now()
	}
	m.deletes = append(m.deletes, *entry)
}

func (m *MemoryStore) CreateDeleteLog(ctx context.Context, entry *models.DeleteLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendDeleteLog(entry)
	return nil
}

func (m *MemoryStore) ListDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	if limit <= 0 {
		limit = 100
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.DeleteLog, 0)
	for i := len(m.deletes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.deletes[i])
	}
	return out, nil
}
