package domain

import "fmt"

// Mode determines how the signers of a collection act.
type Mode string

const (
	ModeOnline           Mode = "online"
	ModeSelfSign         Mode = "self_sign"
	ModeGroupSign        Mode = "group_sign"
	ModeOrderedGroupSign Mode = "ordered_group_sign"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeOnline, ModeSelfSign, ModeGroupSign, ModeOrderedGroupSign}

// ModePolicy is the decision table row for one mode. Every operation that behaves
// differently per mode reads it from here instead of switching on the mode itself.
type ModePolicy struct {
	// Ordered signers act strictly by ascending Order.
	Ordered bool
	// Distributes sends a signing invitation to eligible signers on creation.
	Distributes bool
	// MinSigners and MaxSigners bound the signer list; MaxSigners < 0 means unbounded.
	MinSigners int
	MaxSigners int
	// CreatorReadsAnyGroup lets the creator read the collection after moving group.
	CreatorReadsAnyGroup bool
	// Downloadable lists the statuses in which the signed file may be downloaded.
	Downloadable []Status
}

// CanDownload reports whether the policy allows downloads in the given status.
func (p ModePolicy) CanDownload(s Status) bool {
	for _, d := range p.Downloadable {
		if d == s {
			return true
		}
	}
	return false
}

// Policy returns the decision table row for the mode.
func (m Mode) Policy() (ModePolicy, error) {
	switch m {
	case ModeSelfSign:
		return ModePolicy{
			MinSigners:           0,
			MaxSigners:           0,
			CreatorReadsAnyGroup: true,
			Downloadable:         []Status{StatusViewed, StatusSigned},
		}, nil
	case ModeOnline:
		return ModePolicy{
			MinSigners:   1,
			MaxSigners:   1,
			Downloadable: []Status{StatusSigned},
		}, nil
	case ModeGroupSign:
		return ModePolicy{
			Distributes:  true,
			MinSigners:   1,
			MaxSigners:   -1,
			Downloadable: []Status{StatusSigned},
		}, nil
	case ModeOrderedGroupSign:
		return ModePolicy{
			Ordered:      true,
			Distributes:  true,
			MinSigners:   1,
			MaxSigners:   -1,
			Downloadable: []Status{StatusSigned},
		}, nil
	}
	return ModePolicy{}, ErrInvalidMode.With(fmt.Sprintf("unknown mode %q", m))
}

// MustPolicy is Policy for modes already validated at the boundary.
func (m Mode) MustPolicy() ModePolicy {
	p, err := m.Policy()
	if err != nil {
		panic(err)
	}
	return p
}
