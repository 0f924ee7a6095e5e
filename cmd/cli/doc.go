// Package cli constructs the gmg command-line interface, wiring the Cobra
// command hierarchy, configuration loader, and structured logging primitives
// around the hosting service graph.
package cli
