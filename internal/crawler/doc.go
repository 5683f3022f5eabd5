// Package crawler defines the shared types, collaborator interfaces, and the
// small concurrent building blocks (URL validation, visited set, result
// aggregation) used by the bounded-depth crawl engine.
package crawler
