// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime introspection: named probes sampled on demand into a snapshot
// suitable for structured logging.
package control
