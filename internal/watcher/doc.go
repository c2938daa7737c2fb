// Package watcher runs the poll loop: fetch statuses since the watermark,
// report the first transition, advance the watermark, sleep.
//
// A failed iteration is logged and reported to the chat, then the loop
// carries on from the same watermark.
package watcher
