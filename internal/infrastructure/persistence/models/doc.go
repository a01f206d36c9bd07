// Package models contains GORM persistence models. They are kept apart from domain
// entities so the domain layer stays free of ORM tags.
//
// - base.go: BaseModel shared by aggregate tables
// - sharepoint.go: pending items, scan runs, scan lease
// - operation.go: the operation write model (operations, documents, invoices,
//   number counter)
package models
