// Package dag turns resolved environments into a dependency graph and runs
// it: each environment compiles to a sequential chain of steps, environment
// chains execute concurrently on a fixed worker pool, and cross-environment
// depends_on edges order whole chains after one another.
package dag
