// Package ports declares the driven-side interfaces of the engine:
// model persistence and distributed locking. Adapters under
// pkg/adapters implement them; the contract test suite in this package
// keeps every implementation honest.
package ports
