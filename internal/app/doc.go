// Package app wires the application together: logger, matrix loader,
// handler registry, graph builder, executor, and reporting.
package app
