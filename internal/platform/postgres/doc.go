// Package postgres provides PostgreSQL implementations of the store
// interfaces. All stores accept a store.DBTX so they can run against either
// a *sql.DB or an open transaction, and map driver errors to the sentinel
// errors defined in the store package.
package postgres
