package learndot

// Learner identifies a platform user to be matched against a Learndot
// contact. Matching is by exact email; the ID only namespaces the cache key.
type Learner struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (l Learner) String() string {
	if l.Username != "" {
		return l.Username
	}
	return l.Email
}

// Contact is a Learndot contact as returned by the contact search endpoint.
// Learndot's field naming for the display name is kept as-is.
type Contact struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"_displayName_"`
}

// Enrolment is a Learndot enrolment record as returned by the enrolment
// search endpoint. Timestamps are ISO-8601-like strings; Learndot omits the
// "T" separator, which ISO 8601 permits.
type Enrolment struct {
	ID         int64           `json:"id"`
	Status     EnrolmentStatus `json:"status"`
	ExpiryDate string          `json:"expiryDate,omitempty"`
	Modified   string          `json:"modified,omitempty"`
	Created    string          `json:"created,omitempty"`
}

// contactSearchRequest is the body of a contact search call.
type contactSearchRequest struct {
	Email []string `json:"email"`
}

// contactSearchResponse is the body of a contact search response.
type contactSearchResponse struct {
	Results []Contact `json:"results"`
}

// enrolmentSearchRequest is the body of an enrolment search call.
type enrolmentSearchRequest struct {
	ContactID   []int64 `json:"contactId"`
	ComponentID []int64 `json:"componentId"`
}

// enrolmentSearchResponse is the body of an enrolment search response.
type enrolmentSearchResponse struct {
	Results []Enrolment `json:"results"`
}

// enrolmentUpdateRequest is the body of an enrolment status update call.
type enrolmentUpdateRequest struct {
	Status EnrolmentStatus `json:"status"`
}
