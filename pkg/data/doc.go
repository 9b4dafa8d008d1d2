// Package data removes connection lifecycle boilerplate from code that talks
// to a relational database through a provider (see pkg/sqlxconn and
// pkg/pgxconn).
//
// The central piece is Scope: it records whether a connection was open when
// the scope was entered, opens it if it was not, optionally begins a
// transaction, and on Close releases the transaction and closes the
// connection only if the scope opened it. A connection the caller opened is
// never closed by a scope, however deeply scopes nest and however the guarded
// code exits.
//
// The Execute*Auto functions wrap a single command in such a scope:
//
//	n, err := data.ExecuteNonQueryAuto(cmd)
//	name, err := data.ExecuteScalarAutoAs[*string](cmd)
//	table, err := data.ExecuteDataTableAuto(cmd, data.LoadPreserveChanges)
//
// ExecuteReaderAuto is the exception: the returned reader outlives the scope,
// so when the connection started closed the reader is created with
// BehaviorCloseConnection and closing the reader closes the connection.
// A reader that is never closed keeps its connection open.
//
// Every blocking operation has a Context form. Connections, commands and
// readers that only offer blocking methods are adapted once with
// AsContextConnection, AsContextCommand and AsContextReader; the adapters
// check the context before delegating.
package data
