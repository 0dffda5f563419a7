// Package connectors holds the document sources weft can ingest from.
// Each source implements driven.Source: it validates its root, lists every
// file for a full sync and streams changes while watched.
package connectors
