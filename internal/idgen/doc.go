// Package idgen wraps the UUID generator so that it can be stubbed in tests.
// Boot sessions and lifecycle events are tagged with these identifiers;
// callers should treat them as opaque strings.
package idgen
