package enums

import "fmt"

// DisputeStatus mirrors the gateway dispute lifecycle.
type DisputeStatus string

const (
	DisputeStatusNeedsResponse DisputeStatus = "needs_response"
	DisputeStatusUnderReview   DisputeStatus = "under_review"
	DisputeStatusWon           DisputeStatus = "won"
	DisputeStatusLost          DisputeStatus = "lost"
)

var disputeStatuses = newSet("dispute status",
	DisputeStatusNeedsResponse,
	DisputeStatusUnderReview,
	DisputeStatusWon,
	DisputeStatusLost,
)

func (v DisputeStatus) String() string { return string(v) }

func (v DisputeStatus) IsValid() bool { return disputeStatuses.has(v) }

func ParseDisputeStatus(value string) (DisputeStatus, error) { return disputeStatuses.parse(value) }

// IsTerminal reports whether the dispute has been resolved.
func (v DisputeStatus) IsTerminal() bool {
	switch v {
	case DisputeStatusWon, DisputeStatusLost:
		return true
	case DisputeStatusNeedsResponse, DisputeStatusUnderReview:
		return false
	}
	return false
}

// DisputeStatusFromGateway folds the gateway's wider status vocabulary into
// the four states tracked locally.
func DisputeStatusFromGateway(value string) (DisputeStatus, error) {
	switch value {
	case "needs_response", "warning_needs_response":
		return DisputeStatusNeedsResponse, nil
	case "under_review", "warning_under_review":
		return DisputeStatusUnderReview, nil
	case "won", "warning_closed":
		return DisputeStatusWon, nil
	case "lost", "charge_refunded":
		return DisputeStatusLost, nil
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}
