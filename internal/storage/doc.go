// Package storage provides an optional, append-only delivery journal.
//
// Every notification attempt made by the notifier can be recorded here for
// later inspection. The journal is never read back by the bot itself, so a
// restart always begins with an empty status table.
package storage
