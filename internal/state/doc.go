// Package state holds the screen state shared between view-model operations
// and the UI.
//
// # Overview
//
// Every view-model operation owns one Slot. An operation calls Begin, runs a
// single backend call, then Publish-es its result.Result. The UI reads
// Snapshot copies whenever it renders.
//
//	Operation (tea.Cmd goroutine):   UI (Update/View):
//	┌────────────────┐              ┌──────────────────┐
//	│ slot.Begin()   │              │                  │
//	│ client.Call()  │              │                  │
//	│ slot.Publish() │─────────────→│ slot.Snapshot()  │
//	└────────────────┘   (mutex)    └──────────────────┘
//
// # Update Semantics
//
// On success the value is replaced. On failure the result carries the
// classified failure and, depending on the slot's Policy:
//
//   - KeepOnFailure: the previous value stays visible next to the message
//   - ClearOnFailure: list slots show an empty list with the message
//
// Concurrent operations on the same slot are not ordered: whichever Publish
// completes last is what the UI shows. Callers issuing overlapping writes to
// one entity serialize them themselves.
//
// # Concurrency Model
//
// Slot uses a sync.RWMutex held only while copying. List slots clone on
// Publish and Snapshot so callers may mutate what they receive.
package state
