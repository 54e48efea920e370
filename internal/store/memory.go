package store

import (
	"context"
	"sync"

	"github.com/Inovico-app/inovy-sub006/internal/classify"
	"github.com/Inovico-app/inovy-sub006/internal/guardrails"
)

// MemoryStore is an in-memory store for development and tests. It holds the
// same contracts as the PostgreSQL store, including the seeded default
// policy and append-only violations.
type MemoryStore struct {
	mu              sync.RWMutex
	policies        map[string]guardrails.Policy
	classifications map[string]classify.Policy
	violations      []guardrails.Violation
}

// NewMemoryStore creates a memory store with the default policy seeded.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		policies:        make(map[string]guardrails.Policy),
		classifications: make(map[string]classify.Policy),
	}
	policy := guardrails.DefaultPolicy()
	s.policies[memKey(string(policy.Scope), policy.ScopeID)] = policy
	return s
}

func memKey(a, b string) string { return a + "\x00" + b }

// GetPolicy returns the policy for (scope, scopeID) or
// guardrails.ErrPolicyNotFound.
func (s *MemoryStore) GetPolicy(_ context.Context, scope guardrails.Scope, scopeID string) (*guardrails.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if policy, ok := s.policies[memKey(string(scope), scopeID)]; ok {
		copied := policy
		return &copied, nil
	}
	return nil, guardrails.ErrPolicyNotFound
}

// UpsertPolicy creates or replaces a policy.
func (s *MemoryStore) UpsertPolicy(_ context.Context, policy *guardrails.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[memKey(string(policy.Scope), policy.ScopeID)] = *policy
	return nil
}

// GetClassificationPolicy returns the active classification policy or
// classify.ErrPolicyNotFound.
func (s *MemoryStore) GetClassificationPolicy(_ context.Context, dataType classify.DataType, organizationID string) (*classify.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if policy, ok := s.classifications[memKey(string(dataType), organizationID)]; ok && policy.Active {
		copied := policy
		return &copied, nil
	}
	return nil, classify.ErrPolicyNotFound
}

// UpsertClassificationPolicy creates or replaces a classification policy.
func (s *MemoryStore) UpsertClassificationPolicy(_ context.Context, policy *classify.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications[memKey(string(policy.DataType), policy.OrganizationID)] = *policy
	return nil
}

// InsertViolation appends a violation record.
func (s *MemoryStore) InsertViolation(_ context.Context, violation *guardrails.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations = append(s.violations, *violation)
	return nil
}

// ListViolations returns violations matching the filter, oldest first.
func (s *MemoryStore) ListViolations(_ context.Context, filter ViolationFilter) ([]guardrails.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []guardrails.Violation
	for _, v := range s.violations {
		if filter.OrganizationID != "" && v.OrganizationID != filter.OrganizationID {
			continue
		}
		if !filter.Since.IsZero() && v.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && !v.CreatedAt.Before(filter.Until) {
			continue
		}
		out = append(out, v)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
