// Package collector finds the resource files a command should validate and
// the repository state they were validated at.
package collector

// Result holds the files found by a ResourceCollector.
type Result struct {
	Files    []string // sorted, without duplicates
	Warnings []string // non-fatal issues encountered
}
