//go:build release

package checks

// Enabled true, если нарушения контракта приводят к панике.
const Enabled = false
