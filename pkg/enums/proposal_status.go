package enums

import "fmt"

// ProposalStatus tracks the lifecycle state of a proposal.
type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

var validProposalStatuses = []ProposalStatus{
	ProposalStatusPending,
	ProposalStatusAccepted,
	ProposalStatusRejected,
}

// String implements fmt.Stringer.
func (p ProposalStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProposalStatus.
func (p ProposalStatus) IsValid() bool {
	for _, candidate := range validProposalStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (p ProposalStatus) IsTerminal() bool {
	return p == ProposalStatusAccepted || p == ProposalStatusRejected
}

// ParseProposalStatus converts raw input into a ProposalStatus.
func ParseProposalStatus(value string) (ProposalStatus, error) {
	for _, candidate := range validProposalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid proposal status %q", value)
}
