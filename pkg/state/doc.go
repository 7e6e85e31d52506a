// Package state defines persistence contracts for per-scope settings inputs
// and a resolver that layers them into a para.Store.
//
//   - Store only loads and saves one sparse para.Input for one Ref.
//   - Resolver loads the inputs of several scopes, merges them strongest
//     first and completes the result from its defaults tree.
//   - The para package stays persistence-agnostic.
//
// Data flow:
//
//	Store -> Resolver -> layering.MergeInputs -> para.New -> *Resolved
//
// Provenance:
//
//	Meta.SnapshotID is carried onto Layer.SnapshotID and reported by
//	Resolved.Trace for every path.
//
// Deterministic keys:
//
//	Ref.Identifier gives the canonical storage key based on the scope model
//	(system/tenant/org/team/user).
package state
