// Package database opens the record store shared by the store and queue
// packages.
//
// SQLite (modernc.org/sqlite) is the default; PostgreSQL (lib/pq) is selected
// with database.driver = "postgres". Statements are built with squirrel so the
// same query code runs against both, with the placeholder format chosen per
// driver. The embedded schema only uses portable DDL (TEXT timestamps in a
// fixed-width UTC layout, INTEGER booleans, partial unique indexes) and is
// version-checked on open.
package database
