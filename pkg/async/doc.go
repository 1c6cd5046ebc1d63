// Package async provides a panic-safe goroutine helper for the engine's
// background work (expiry sweeps). Nothing on the decision path spawns
// goroutines.
package async
