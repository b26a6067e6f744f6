// Package memstore is an in-memory implementation of tenant.AliasStore and
// tenant.TenantStore. It enforces the same constraints as the PostgreSQL schema
// (case-insensitive unique alias domains, one canonical alias per tenant) and is
// meant for tests, local development and small single-process deployments.
package memstore
