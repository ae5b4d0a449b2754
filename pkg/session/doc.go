// Package session serializes access to stored models. The engine's core
// is single-writer by design: every store round trip for a given model id
// goes through a per-id mutex here (plus an optional distributed lock),
// so one authoring session at a time observes a consistent model.
package session
