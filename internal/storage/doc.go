// Package storage provides the persistence backends for reminder records.
//
// Two drivers are available: a dependency-free file backend (snapshot +
// append-only journal) and a SQLite database file. Both implement
// reminder.Store.
package storage
