package models

// ClaimStatus represents the adjudication status of a claim
type ClaimStatus string

const (
	StatusPending      ClaimStatus = "PENDING"
	StatusProcessing   ClaimStatus = "PROCESSING"
	StatusApproved     ClaimStatus = "APPROVED"
	StatusRejected     ClaimStatus = "REJECTED"
	StatusPartial      ClaimStatus = "PARTIAL"
	StatusManualReview ClaimStatus = "MANUAL_REVIEW"
)

// AllStatuses lists every status in display order
var AllStatuses = []ClaimStatus{
	StatusPending,
	StatusProcessing,
	StatusApproved,
	StatusRejected,
	StatusPartial,
	StatusManualReview,
}

var statusLabels = map[ClaimStatus]string{
	StatusPending:      "Pending",
	StatusProcessing:   "Processing",
	StatusApproved:     "Approved",
	StatusRejected:     "Rejected",
	StatusPartial:      "Partial",
	StatusManualReview: "Manual Review",
}

// Valid reports whether s is one of the known statuses
func (s ClaimStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable badge text. Unknown values read as Pending.
func (s ClaimStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return statusLabels[StatusPending]
}

// IsInFlight reports whether the claim is still waiting on adjudication.
func (s ClaimStatus) IsInFlight() bool {
	return s == StatusPending || s == StatusProcessing
}

// ExpectsDecision reports whether a decision record should exist for a claim
// in this status.
func (s ClaimStatus) ExpectsDecision() bool {
	return !s.IsInFlight()
}

// CarriesApprovedAmount reports whether an approved amount is meaningful.
func (s ClaimStatus) CarriesApprovedAmount() bool {
	return s == StatusApproved || s == StatusPartial
}
