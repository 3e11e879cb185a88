// Package api holds the types and interfaces shared across hub components.
//
// Components depend on the narrow interfaces declared here instead of on
// each other's concrete types, which keeps the dependency graph acyclic:
// the server pool, the API-tool bridge, the catalog, the group resolver,
// the dispatcher and the event bus all meet only in this package and are
// wired together by the lifecycle coordinator in internal/hub.
package api
