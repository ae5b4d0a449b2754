/*
Package espalier is a structural engine for Event Modeling blueprints: it
holds a model of typed slices (state changes, state views, automations)
built from typed elements (commands, events, read models, screens,
processors), enforces the composition and connectivity rules between
them, and serializes the whole model to a fixed, backward-compatible JSON
shape.

Espalier does not decide what a model should say. An external
collaborator (an analyst, a script, an agent) drives the builder API with
already-decided content; the engine only checks structural legality:
unique ids, resolvable and type-matched dependency edges, legal
transitions, acyclicity, and per-slice composition.

# Concept

A blueprint is an ordered list of slices. Each slice bundles elements and
their Given/When/Then specifications. Dependencies are declared
redundantly on both endpoints (an OUTBOUND half and an INBOUND mirror),
and the engine keeps the pair symmetric and the overall graph acyclic.
The builder is transactional: a rejected mutation leaves the model
exactly as it was.

# Usage

Initialize the engine with a Loam workspace (the default store) or inject
a memory/redis store, then drive the builder:

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/espalier"
		"github.com/aretw0/espalier/pkg/domain"
	)

	func main() {
		eng, err := espalier.New("./blueprints")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		id, err := eng.Create(ctx, "cart")
		if err != nil {
			log.Fatal(err)
		}

		b, err := eng.Open(ctx, id)
		if err != nil {
			log.Fatal(err)
		}

		if err := b.AddSlice(domain.Slice{
			ID:        "slice-add-item",
			Index:     1,
			Title:     "Add Item to Cart",
			SliceType: domain.SliceStateChange,
		}); err != nil {
			log.Fatal(err)
		}

		// ... add elements, connect them, commit the slice ...

		if err := eng.Save(ctx, id, b); err != nil {
			log.Fatal(err)
		}
	}
*/
package espalier
