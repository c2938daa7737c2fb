// Package homework holds the domain model of the status watcher: the wire
// shape of a status response, its validation, the verdict catalog and the
// Tracker that decides whether a status change must be announced.
//
// Everything here is pure; network and delivery live in other packages.
package homework
