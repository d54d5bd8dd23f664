package domain

import "fmt"

// ValidateCatalog checks that every feature has a valid location.
func ValidateCatalog(features []Feature) error {
	for i, f := range features {
		if !f.Location.Valid() {
			return fmt.Errorf("feature %d (%q): location %d,%d out of range",
				i, f.Name, f.Location.Latitude, f.Location.Longitude)
		}
	}
	return nil
}
