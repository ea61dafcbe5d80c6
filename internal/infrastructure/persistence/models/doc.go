// Package models contains the GORM persistence models of the billing
// context. Domain types stay free of ORM tags; each model here maps one
// table and converts to and from its domain counterpart.
//
// Files:
//   - base.go: shared columns (identity, audit timestamps, version, tenant)
//   - billing.go: invoices, invoice items, payments, sequences, bank accounts
//   - stock.go: stock levels consumed by the stock gateway
//   - outbox.go: outbox entries for event delivery
package models
