// Package notifier delivers chat notifications for the status watcher.
//
// Delivery is synchronous and best-effort: every send is rate limited,
// bounded by a per-attempt timeout and retried with exponential backoff.
// The caller receives the last error and decides whether to log it; the
// watcher always swallows it.
//
// # History
//
// For debugging, the service keeps a small in-memory history of recently
// delivered notifications. When a storage.Store is configured every attempt
// is also appended to the delivery journal.
package notifier
