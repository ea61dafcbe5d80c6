// Package billing is the invoicing engine: line and invoice arithmetic,
// invoice numbering, payment reconciliation and the invoice lifecycle.
//
// Key Aggregates:
//   - Invoice: a draft or fiscal document with its items, totals and paid amount
//   - InvoiceSequence: the per-tenant counter and pattern used to number invoices
//   - Payment: an immutable receipt applied against one invoice
//   - BankAccount: where a payment was received, and in which currency
//
// Pure services:
//   - CalculateLine / AggregateTotals: monetary rules, rounded half-up per line
//   - Pattern: compiles and renders invoice number patterns
//   - Reconciler: validates and applies payments, converting currencies
//   - TransitionGuard: the single table of allowed status changes
//
// Stock is not owned here. The lifecycle declares when stock moves through
// StockAdjustment values and the application layer executes them.
package billing
