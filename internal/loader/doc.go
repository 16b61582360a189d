// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package loader runs background resource loading.
//
// A load request registers a Task and hands it to the worker pool. On a
// worker the Task parses its resource and posts one event per produced
// item to the consumer goroutine (the render loop). Each notify
// acknowledges one item on the Task; the last acknowledgement releases the
// Task, unregisters it and completes its job in the loader's Jobs wave.
//
// All completion work, including failure handling, happens on the consumer
// goroutine, so progress observed there never moves backwards.
package loader
