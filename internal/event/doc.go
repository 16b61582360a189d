// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package event marshals completed background work onto consumer goroutines.
//
// Producers (pool workers, other subsystems) post Events to a consumer
// identity through a Manager. Each identity owns one Queue that buffers
// events in two lists: producers append to "pending" under the queue mutex,
// the consumer swaps the lists and runs notify callbacks from "sending"
// without holding the lock. A slow consumer therefore never blocks a
// producer beyond the O(1) append.
//
// Only the goroutine acting as a given consumer may drain its queue. State
// touched from notify callbacks needs no further locking as long as it is
// only ever touched from that consumer.
package event
