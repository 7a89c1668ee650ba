// Package core provides the business logic for roster CSV imports.
//
// This package holds the import pipeline independent of any transport. It
// can be used by web handlers, CLI tools, or tests without modification.
//
// # Pipeline
//
// An upload flows through these stages, each usable on its own:
//
//  1. [RateLimiter.Check] throttles repeated attempts per user
//  2. [ValidateFile] rejects wrong types, extensions and oversized files
//  3. [DuplicateTracker.Seen] rejects a file submitted again within the TTL
//  4. [NormalizeEncoding] strips a BOM and falls back to ISO-8859-1
//  5. [ParseCSV] tokenizes rows, detects a header and single-column lists
//  6. [ProcessRows] validates rows with the field validators and dedupes
//     by email, or [SynthesizeNameOnly] builds records from bare names
//
// [Service.Import] runs all of them, cross-checks the result against the
// roster store and the staged list, and stages what survives.
//
// # Staging and Commit
//
// Staged records wait per (user, course) in [Staging] until
// [Service.Commit] writes them to the roster store in one batch and
// publishes a roster.imported event.
//
// # Errors
//
// Bad rows are data, not errors: they come back as strings in
// [ImportResult.Errors]. Only pre-flight failures return a Go error, and
// [MapError] turns those into a message with a support code:
//
//   - FILE001-FILE008: File errors (type, extension, size, encoding, duplicates)
//   - VAL001-VAL003: Record and course errors
//   - STG001-STG002: Staging errors
//   - ROS001: Roster store unavailable
//   - RATE001: Too many attempts
//
// # Time
//
// The rate limiter, duplicate tracker and staging area take a [Clock] via
// [WithClock]. Expired entries are ignored on read and removed by Sweep,
// which the host runs periodically with [RunSweeper].
package core
