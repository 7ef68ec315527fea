package model

import "time"

// Item represents a single lost or found report.
type Item struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory"`
	Location    string     `json:"location,omitempty"`
	EventDate   time.Time  `json:"event_date"`
	Brand       string     `json:"brand,omitempty"`
	Model       string     `json:"model,omitempty"`
	Color       string     `json:"color,omitempty"`
	Description string     `json:"description,omitempty"`
	ReporterID  int64      `json:"reporter_id"`
	PhotoMime   string     `json:"photo_mime,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// Security question/answer for claim verification. The question is only
	// exposed through the dedicated endpoint, the answer never leaves the server.
	SecurityQuestion string `json:"-"`
	SecurityAnswer   string `json:"-"`
}

// Item kinds.
const (
	KindLost  = "lost"
	KindFound = "found"
)

// OppositeKind returns the counterpart kind for matching.
func OppositeKind(kind string) string {
	if kind == KindLost {
		return KindFound
	}
	return KindLost
}

// Item statuses, in forward lifecycle order.
const (
	StatusRegistered       = "Registered"
	StatusAuthInProgress   = "Authentication In Progress"
	StatusAuthVerified     = "Authentication Verified"
	StatusReturnInProgress = "Return In Progress"
	StatusReturned         = "Object Returned"
)

// statusTransitions defines the legal status edges. An item only ever moves
// along these; there are no skip transitions.
var statusTransitions = map[string][]string{
	StatusRegistered:       {StatusAuthInProgress},
	StatusAuthInProgress:   {StatusAuthVerified, StatusRegistered},
	StatusAuthVerified:     {StatusReturnInProgress},
	StatusReturnInProgress: {StatusReturned},
	StatusReturned:         nil,
}

// ValidStatus reports whether s is a defined item status.
func ValidStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether moving an item from one status to another
// is a legal edge of the lifecycle.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusProtected reports whether an item's status is past the point where
// the matching subsystem may move it backwards. Verified and returned items
// are shielded from re-matching churn.
func StatusProtected(s string) bool {
	switch s {
	case StatusAuthVerified, StatusReturnInProgress, StatusReturned:
		return true
	}
	return false
}
