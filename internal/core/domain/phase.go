package domain

import "fmt"

// Phase is the coarse milestone of a trade. Phases are totally ordered and a
// trade only moves forward through them.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseTakerFeePublished
	PhaseDepositPublished
	PhaseDepositConfirmed
	PhaseFiatSent
	PhaseFiatReceived
	PhasePayoutPublished
	PhaseWithdrawn
)

var phaseNames = []string{
	"INIT",
	"TAKER_FEE_PUBLISHED",
	"DEPOSIT_PUBLISHED",
	"DEPOSIT_CONFIRMED",
	"FIAT_SENT",
	"FIAT_RECEIVED",
	"PAYOUT_PUBLISHED",
	"WITHDRAWN",
}

func (p Phase) String() string {
	return enumName(phaseNames, int(p))
}

// IsValidTransitionTo returns whether moving from p to next is a strict step
// forward. Same-phase updates are decided at State level.
func (p Phase) IsValidTransitionTo(next Phase) bool {
	return next > p
}

// AtLeast returns whether p is the same or a later phase than other.
func (p Phase) AtLeast(other Phase) bool {
	return p >= other
}

func (p Phase) MarshalText() ([]byte, error) {
	return marshalEnum(phaseNames, int(p), "phase")
}

func (p *Phase) UnmarshalText(text []byte) error {
	i, err := parseEnum(phaseNames, string(text))
	if err != nil {
		return err
	}
	*p = Phase(i)
	return nil
}

func enumName(names []string, i int) string {
	if !validEnum(names, i) {
		return fmt.Sprintf("UNKNOWN(%d)", i)
	}
	return names[i]
}

func validEnum(names []string, i int) bool {
	return i >= 0 && i < len(names)
}

func parseEnum(names []string, s string) (int, error) {
	for i, name := range names {
		if name == s {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownEnumValue, s)
}
