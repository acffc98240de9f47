package learndot

// EnrolmentStatus is a Learndot enrolment status value. Only the values the
// v2 API accepts are valid.
type EnrolmentStatus string

// The closed set of Learndot enrolment statuses.
const (
	StatusApproved   EnrolmentStatus = "APPROVED"
	StatusCancelled  EnrolmentStatus = "CANCELLED"
	StatusConfirmed  EnrolmentStatus = "CONFIRMED"
	StatusFailed     EnrolmentStatus = "FAILED"
	StatusInProgress EnrolmentStatus = "IN_PROGRESS"
	StatusMissed     EnrolmentStatus = "MISSED"
	StatusPassed     EnrolmentStatus = "PASSED"
	StatusTentative  EnrolmentStatus = "TENTATIVE"
)

var validStatuses = map[EnrolmentStatus]struct{}{
	StatusApproved:   {},
	StatusCancelled:  {},
	StatusConfirmed:  {},
	StatusFailed:     {},
	StatusInProgress: {},
	StatusMissed:     {},
	StatusPassed:     {},
	StatusTentative:  {},
}

// Valid reports whether s is a recognized Learndot enrolment status.
func (s EnrolmentStatus) Valid() bool {
	_, ok := validStatuses[s]
	return ok
}
