package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxPrefixLength = 20

// InvoiceSequence is the per-tenant numbering resource. Allocation mutates it
// in memory; persistence must store it with a version check inside the same
// transaction that issues the invoice.
type InvoiceSequence struct {
	TenantID   uuid.UUID
	Prefix     string
	Pattern    string
	NextNumber int64
	Version    int
	UpdatedAt  time.Time
}

// NewInvoiceSequence returns the defaults used before a tenant configures
// numbering.
func NewInvoiceSequence(tenantID uuid.UUID) *InvoiceSequence {
	return &InvoiceSequence{
		TenantID:   tenantID,
		Prefix:     DefaultPrefix,
		Pattern:    DefaultPattern,
		NextNumber: 1,
		Version:    1,
		UpdatedAt:  time.Now(),
	}
}

// Compiled returns the compiled numbering pattern.
func (s *InvoiceSequence) Compiled() Pattern {
	return CompilePattern(s.Pattern)
}

// Preview renders the next number without consuming it.
func (s *InvoiceSequence) Preview(nc NumberContext) string {
	nc.Prefix = s.Prefix
	nc.Number = s.NextNumber
	return s.Compiled().Render(nc)
}

// Allocate renders the current value and advances the counter by one.
func (s *InvoiceSequence) Allocate(nc NumberContext) (string, int64) {
	value := s.NextNumber
	nc.Prefix = s.Prefix
	nc.Number = value
	number := s.Compiled().Render(nc)
	s.NextNumber++
	s.UpdatedAt = time.Now()
	return number, value
}

// SequenceSettings is a partial update of the sequence configuration.
type SequenceSettings struct {
	Prefix     *string
	Pattern    *string
	NextNumber *int64
}

// Configure applies settings. The counter may only move forward, so numbers
// that were already handed out are never rendered again.
func (s *InvoiceSequence) Configure(settings SequenceSettings) error {
	prefix := s.Prefix
	if settings.Prefix != nil {
		prefix = strings.TrimSpace(*settings.Prefix)
		if len(prefix) > maxPrefixLength {
			return validationError("prefix must be at most %d characters", maxPrefixLength)
		}
	}

	pattern := s.Pattern
	if settings.Pattern != nil {
		pattern = strings.TrimSpace(*settings.Pattern)
		if pattern == "" {
			pattern = DefaultPattern
		}
		if err := ValidatePattern(pattern); err != nil {
			return err
		}
	}

	next := s.NextNumber
	if settings.NextNumber != nil {
		if *settings.NextNumber < 1 {
			return validationError("next number must be at least 1, got %d", *settings.NextNumber)
		}
		if *settings.NextNumber < s.NextNumber {
			return validationError("next number cannot go back from %d to %d, numbers already allocated would repeat",
				s.NextNumber, *settings.NextNumber)
		}
		next = *settings.NextNumber
	}

	s.Prefix = prefix
	s.Pattern = pattern
	s.NextNumber = next
	s.UpdatedAt = time.Now()
	return nil
}

// PreviewNumber renders pattern with explicit values. It touches no state and
// backs the endpoint that lets users try a pattern before saving it.
func PreviewNumber(pattern, prefix string, nextNumber int64, at time.Time, clientCode, clientName string) (string, error) {
	if nextNumber < 1 {
		return "", validationError("next number must be at least 1, got %d", nextNumber)
	}
	return CompilePattern(pattern).Render(NumberContext{
		Prefix:     prefix,
		Number:     nextNumber,
		Date:       at,
		ClientCode: clientCode,
		ClientName: clientName,
	}), nil
}
