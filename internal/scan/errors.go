package scan

import "fmt"

// DiscoveryError reports that the lessons of one quest could not be listed.
type DiscoveryError struct {
	QuestID string
	Cause   error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to list lessons for quest %s: %v", e.QuestID, e.Cause)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}
