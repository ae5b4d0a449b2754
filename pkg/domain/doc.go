/*
Package domain contains the value types of an Event Modeling blueprint:
slices, elements, fields, dependencies and Given/When/Then specifications,
plus the error taxonomy shared by every layer of the engine.

Types here are plain data. The structural rules (composition tables,
transition tables, cycle detection) live in pkg/rules and pkg/graph; the
only validation owned by this package is the shape of a single Field.
*/
package domain
