// Package audit implements the paginated audit trail and its detail view.
package audit

import (
	"context"
	"fmt"
	"sync"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/logger"
)

// Default page sizes
const (
	DefaultPageSize       = 10
	DefaultDetailPageSize = 50
)

// Backend is the subset of the API client the panel uses
type Backend interface {
	AuditTrail(ctx context.Context, page, limit int) (*api.AuditPage, error)
	AuditDetails(ctx context.Context, id, page, limit int) (*api.AuditDetail, error)
}

// Panel holds the current list page and the open detail, if any
type Panel struct {
	backend        Backend
	pageSize       int
	detailPageSize int
	log            *logger.Logger

	mu     sync.Mutex
	page   *api.AuditPage
	detail *api.AuditDetail
}

// NewPanel creates a panel. Non-positive sizes fall back to the defaults.
func NewPanel(backend Backend, pageSize, detailPageSize int, log *logger.Logger) *Panel {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if detailPageSize <= 0 {
		detailPageSize = DefaultDetailPageSize
	}
	if log == nil {
		log = logger.Quiet("audit")
	}
	return &Panel{backend: backend, pageSize: pageSize, detailPageSize: detailPageSize, log: log}
}

// Load fetches one page of the trail
func (p *Panel) Load(ctx context.Context, page int) (*api.AuditPage, error) {
	if page < 1 {
		page = 1
	}
	result, err := p.backend.AuditTrail(ctx, page, p.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}
	p.mu.Lock()
	p.page = result
	p.mu.Unlock()
	p.log.Debug("Loaded audit page %d of %d", result.Pagination.CurrentPage, result.Pagination.TotalPages)
	return result, nil
}

// Open fetches one page of accounts of a run and makes it the open detail
func (p *Panel) Open(ctx context.Context, id, page int) (*api.AuditDetail, error) {
	if page < 1 {
		page = 1
	}
	result, err := p.backend.AuditDetails(ctx, id, page, p.detailPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit details: %w", err)
	}
	p.mu.Lock()
	p.detail = result
	p.mu.Unlock()
	return result, nil
}

// Close returns to the list
func (p *Panel) Close() {
	p.mu.Lock()
	p.detail = nil
	p.mu.Unlock()
}

// Page returns the loaded list page, or nil
func (p *Panel) Page() *api.AuditPage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// Detail returns the open detail, or nil
func (p *Panel) Detail() *api.AuditDetail {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detail
}
