// Package repository stores the endpoint registry in PostgreSQL.
//
// Queries run on a Querier, so the same code works on the pool and inside a
// request transaction. Errors are tagged "table:<name>:" for sqlerr.
package repository
