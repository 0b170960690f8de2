// Package model defines the core domain models used throughout the application.
package model

import "fmt"

// Process identifies a production stage of a campaign.
type Process string

// Production processes.
const (
	// ProcessNursery covers early cultivation (almácigo/vivero).
	ProcessNursery Process = "nursery"
	// ProcessField covers main cultivation.
	ProcessField Process = "field"
	// ProcessPacking covers post-harvest processing.
	ProcessPacking Process = "packing"
)

// Processes lists all production processes in canonical order.
func Processes() []Process {
	return []Process{ProcessNursery, ProcessField, ProcessPacking}
}

// ParseProcess converts a string into a Process. It accepts the canonical
// identifiers and the Spanish names that appear in budget spreadsheets.
func ParseProcess(s string) (Process, error) {
	switch s {
	case "nursery", "almacigo", "almácigo", "vivero":
		return ProcessNursery, nil
	case "field", "campo":
		return ProcessField, nil
	case "packing", "empaque", "packing-planta":
		return ProcessPacking, nil
	}
	return "", fmt.Errorf("unknown process: %q", s)
}

// Valid reports whether p is one of the known processes.
func (p Process) Valid() bool {
	switch p {
	case ProcessNursery, ProcessField, ProcessPacking:
		return true
	}
	return false
}
