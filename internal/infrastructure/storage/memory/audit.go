package memory

import (
	"context"
	"maps"
	"sync"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

var _ ledger.AuditLog = (*AuditLog)(nil)

// AuditLog keeps audit entries in memory, in insertion order.
type AuditLog struct {
	mu      sync.RWMutex
	entries []ledger.AuditEntry
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Record(_ context.Context, e ledger.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	e.Changes = maps.Clone(e.Changes)
	a.entries = append(a.entries, e)
	return nil
}

func (a *AuditLog) History(_ context.Context, entityID id.ID, limit int) ([]ledger.AuditEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := []ledger.AuditEntry{}
	for i := len(a.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if a.entries[i].EntityID == entityID {
			out = append(out, a.entries[i])
		}
	}
	return out, nil
}
