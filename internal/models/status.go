package models

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	StatusDraft     AuctionStatus = "draft"
	StatusActive    AuctionStatus = "active"
	StatusEnded     AuctionStatus = "ended"
	StatusSold      AuctionStatus = "sold"
	StatusCancelled AuctionStatus = "cancelled"
)

// transitions is the only place allowed moves between states are declared.
var transitions = map[AuctionStatus][]AuctionStatus{
	StatusDraft:  {StatusActive},
	StatusActive: {StatusEnded, StatusSold, StatusCancelled},
}

// IsTerminal reports whether no transition can leave s
func (s AuctionStatus) IsTerminal() bool {
	return s == StatusEnded || s == StatusSold || s == StatusCancelled
}

// IsValid reports whether s is a known status
func (s AuctionStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusEnded, StatusSold, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s AuctionStatus) CanTransitionTo(next AuctionStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s AuctionStatus) String() string {
	return string(s)
}
