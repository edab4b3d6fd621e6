package enums

import "fmt"

// ImportJobStatus tracks the lifecycle of a bulk import job.
type ImportJobStatus string

const (
	ImportJobStatusPending    ImportJobStatus = "pending"
	ImportJobStatusProcessing ImportJobStatus = "processing"
	ImportJobStatusCompleted  ImportJobStatus = "completed"
	ImportJobStatusFailed     ImportJobStatus = "failed"
	ImportJobStatusRolledBack ImportJobStatus = "rolled_back"
)

var validImportJobStatuses = []ImportJobStatus{
	ImportJobStatusPending,
	ImportJobStatusProcessing,
	ImportJobStatusCompleted,
	ImportJobStatusFailed,
	ImportJobStatusRolledBack,
}

func (s ImportJobStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ImportJobStatus.
func (s ImportJobStatus) IsValid() bool {
	for _, candidate := range validImportJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s ImportJobStatus) IsTerminal() bool {
	switch s {
	case ImportJobStatusCompleted, ImportJobStatusFailed, ImportJobStatusRolledBack:
		return true
	}
	return false
}

// ParseImportJobStatus converts raw input into an ImportJobStatus.
func ParseImportJobStatus(value string) (ImportJobStatus, error) {
	for _, candidate := range validImportJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid import job status %q", value)
}

// ImportItemStatus tracks one unit of work inside an import job.
type ImportItemStatus string

const (
	ImportItemStatusPending    ImportItemStatus = "pending"
	ImportItemStatusProcessing ImportItemStatus = "processing"
	ImportItemStatusCompleted  ImportItemStatus = "completed"
	ImportItemStatusFailed     ImportItemStatus = "failed"
)

func (s ImportItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ImportItemStatus.
func (s ImportItemStatus) IsValid() bool {
	switch s {
	case ImportItemStatusPending, ImportItemStatusProcessing, ImportItemStatusCompleted, ImportItemStatusFailed:
		return true
	}
	return false
}
