package billing

import (
	"fmt"
	"slices"

	"github.com/erp/billing/internal/domain/shared"
)

// InvoiceStatus is the fiscal lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsValid checks if the status is a known InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no transition other than delete leaves s.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusCancelled
}

// Action is a command that may move an invoice between states.
type Action string

const (
	ActionEdit          Action = "edit"
	ActionIssue         Action = "issue"
	ActionApplyPayment  Action = "apply_payment"
	ActionRevertPayment Action = "revert_payment"
	ActionCancel        Action = "cancel"
	ActionDelete        Action = "delete"
)

// SideEffect is a bit set of work the caller must perform in the same unit
// of work as the transition.
type SideEffect uint8

const (
	EffectAllocateNumber SideEffect = 1 << iota
	EffectDecrementStock
	EffectRestoreStock
	// EffectAuditOverride marks a discouraged transition: the caller must
	// confirm it explicitly, warn about the numbering gap and audit it.
	EffectAuditOverride
)

// Has reports whether all bits of e are set.
func (s SideEffect) Has(e SideEffect) bool {
	return s&e == e
}

// Transition is one row of the lifecycle table.
type Transition struct {
	From    InvoiceStatus
	Action  Action
	To      []InvoiceStatus // empty when the invoice is removed
	Effects SideEffect
}

// Allows reports whether to is a legal destination of t.
func (t Transition) Allows(to InvoiceStatus) bool {
	return slices.Contains(t.To, to)
}

var (
	toIssued       = []InvoiceStatus{InvoiceStatusIssued, InvoiceStatusPaid}
	toCancelled    = []InvoiceStatus{InvoiceStatusCancelled}
	toPaymentState = []InvoiceStatus{InvoiceStatusPartial, InvoiceStatusPaid}
	toReverted     = []InvoiceStatus{InvoiceStatusIssued, InvoiceStatusPartial, InvoiceStatusPaid}
)

// transitions enumerates every legal move. Nothing returns to draft except a
// draft edit, and cancelled only leaves the table through delete.
var transitions = []Transition{
	{InvoiceStatusDraft, ActionEdit, []InvoiceStatus{InvoiceStatusDraft}, 0},
	{InvoiceStatusDraft, ActionIssue, toIssued, EffectAllocateNumber | EffectDecrementStock},
	{InvoiceStatusDraft, ActionCancel, toCancelled, 0},
	{InvoiceStatusDraft, ActionDelete, nil, 0},

	{InvoiceStatusIssued, ActionApplyPayment, toPaymentState, 0},
	{InvoiceStatusIssued, ActionCancel, toCancelled, EffectRestoreStock},
	{InvoiceStatusIssued, ActionDelete, nil, EffectRestoreStock | EffectAuditOverride},

	{InvoiceStatusPartial, ActionApplyPayment, toPaymentState, 0},
	{InvoiceStatusPartial, ActionRevertPayment, toReverted, 0},
	{InvoiceStatusPartial, ActionCancel, toCancelled, EffectRestoreStock},
	{InvoiceStatusPartial, ActionDelete, nil, EffectRestoreStock | EffectAuditOverride},

	{InvoiceStatusPaid, ActionRevertPayment, toReverted, 0},
	{InvoiceStatusPaid, ActionCancel, toCancelled, EffectRestoreStock},
	{InvoiceStatusPaid, ActionDelete, nil, EffectRestoreStock | EffectAuditOverride},

	{InvoiceStatusCancelled, ActionDelete, nil, EffectAuditOverride},
}

// Guard looks up the transition for action from status from. Anything not in
// the table is an InvalidTransition.
func Guard(from InvoiceStatus, action Action) (Transition, error) {
	for _, t := range transitions {
		if t.From == from && t.Action == action {
			return t, nil
		}
	}
	return Transition{}, invalidTransition(from, action)
}

// Transitions returns a copy of the lifecycle table.
func Transitions() []Transition {
	return slices.Clone(transitions)
}

func invalidTransition(from InvoiceStatus, action Action) error {
	return shared.NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("cannot %s an invoice in status %s", actionVerb(action), from))
}

func actionVerb(a Action) string {
	switch a {
	case ActionApplyPayment:
		return "register a payment on"
	case ActionRevertPayment:
		return "delete a payment of"
	}
	return string(a)
}
