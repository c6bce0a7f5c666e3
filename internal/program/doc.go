// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package program provides the typed, immutable representation of a validated
// program: parallel tracks of steps, their start triggers and durations, and
// the shared-resource limits the steps compete for.
//
// # Core Concepts
//
//   - Program: the root value. It owns the tracks, the resource constraints and
//     a program-wide index of steps by identifier and by confirmation name.
//
//   - Track: an ordered sequence of steps. Order matters: a step without an
//     explicit trigger follows the previous step of its track.
//
//   - Step: an atomic unit of work with a StartTrigger, a Duration and an
//     optional task (the resource tag it occupies while running).
//
//   - Trigger and Duration are closed unions. Every consumer switches over the
//     concrete types exhaustively and panics on an unknown variant, so adding a
//     new kind is caught at every consumption site.
//
// Values in this package are built once by the validator and never mutated
// afterwards. Scheduling state lives in the scheduler package.
package program
