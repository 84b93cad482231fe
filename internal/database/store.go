package database

import (
	"context"
	"time"

	"listing-portal/internal/models"
)

// Store is the record store behind every service. Uniqueness of account
// emails, listing slugs and page slugs is enforced here, inside a single
// atomic write, so concurrent writers cannot both succeed.
type Store interface {
	AccountStore
	PropertyStore
	EnquiryStore
	PageStore
	AuditStore

	Ping(ctx context.Context) error
	Close() error
}

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	UpdateAccount(ctx context.Context, id string, mutate func(a *models.Account) error) (*models.Account, error)
	DeleteAccount(ctx context.Context, id string) (*models.Account, error)
	CountAccountsByStatus(ctx context.Context) (map[string]int64, error)
}

// PropertyStore persists listings.
type PropertyStore interface {
	CreateProperty(ctx context.Context, p *models.Property) error
	GetPropertyByID(ctx context.Context, id string) (*models.Property, error)
	GetPropertyBySlug(ctx context.Context, slug string) (*models.Property, error)
	ListProperties(ctx context.Context, f PropertyFilter) (*PropertyPage, error)
	// UpdateProperty applies mutate to the current row and commits it
	// atomically. If mutate fails or the write violates a unique index the
	// stored row is left untouched. It returns the row before and after.
	UpdateProperty(ctx context.Context, id string, mutate func(p *models.Property) error) (before, after *models.Property, err error)
	DeleteProperty(ctx context.Context, id string) (*models.Property, error)
	CountPropertiesByStatus(ctx context.Context) (map[string]int64, error)
}

// EnquiryStore persists enquiries.
type EnquiryStore interface {
	CreateEnquiry(ctx context.Context, e *models.Enquiry) error
	GetEnquiry(ctx context.Context, id string) (*models.Enquiry, error)
	ListEnquiries(ctx context.Context, f EnquiryFilter) ([]models.Enquiry, error)
	UpdateEnquiry(ctx context.Context, id string, mutate func(e *models.Enquiry) error) (*models.Enquiry, error)
	DeleteEnquiry(ctx context.Context, id string) (*models.Enquiry, error)
	CountEnquiriesByStatus(ctx context.Context) (map[string]int64, error)
	// PurgeEnquiry deletes an enquiry and writes its delete log in one transaction.
	PurgeEnquiry(ctx context.Context, id string, entry *models.DeleteLog) error
}

// PageStore persists content pages.
type PageStore interface {
	CreatePage(ctx context.Context, p *models.Page) error
	GetPageByID(ctx context.Context, id string) (*models.Page, error)
	GetPageBySlug(ctx context.Context, slug string) (*models.Page, error)
	ListPages(ctx context.Context) ([]models.Page, error)
	// UpsertPage inserts the page or overwrites the one with the same slug.
	UpsertPage(ctx context.Context, p *models.Page) (*models.Page, error)
	UpdatePage(ctx context.Context, id string, mutate func(p *models.Page) error) (*models.Page, error)
	DeletePage(ctx context.Context, id string) (*models.Page, error)
}

// AuditStore persists listing history and delete logs.
type AuditStore interface {
	RecordPropertyChanges(ctx context.Context, changes []models.PropertyChange) error
	ListPropertyChanges(ctx context.Context, propertyID string, limit int) ([]models.PropertyChange, error)
	CreateDeleteLog(ctx context.Context, entry *models.DeleteLog) error
	ListDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error)
}

// PropertyFilter narrows a listing query. An empty Statuses slice means
// every status; callers serving anonymous readers must always set it.
type PropertyFilter struct {
	Statuses  []models.PropertyStatus
	City      string
	Type      string
	MinPrice  *float64
	MaxPrice  *float64
	Premium   *bool
	CreatedBy string
	Query     string
	Limit     int
	Offset    int
}

// PropertyPage is one page of a listing query.
type PropertyPage struct {
	Items  []models.Property `json:"items"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// EnquiryFilter narrows an enquiry query.
type EnquiryFilter struct {
	Status       models.EnquiryStatus
	ClosedBefore *time.Time
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// normalizePaging clamps limit/offset to sane bounds.
func normalizePaging(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
