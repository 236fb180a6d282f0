package engine

// Seat is a canonical 6-handed table position.
type Seat string

const (
	UTG Seat = "UTG"
	HJ  Seat = "HJ"
	CO  Seat = "CO"
	BTN Seat = "BTN"
	SB  Seat = "SB"
	BB  Seat = "BB"
)

// TableOrder is the pre-flop acting order of a 6-handed table.
var TableOrder = []Seat{UTG, HJ, CO, BTN, SB, BB}

// Ordinal returns the 1-based table-order index, or 0 for an unknown seat.
func (s Seat) Ordinal() int {
	for i, t := range TableOrder {
		if t == s {
			return i + 1
		}
	}
	return 0
}

func (s Seat) Valid() bool { return s.Ordinal() > 0 }

type ActionKind string

const (
	Fold  ActionKind = "fold"
	Check ActionKind = "check"
	Call  ActionKind = "call"
	Raise ActionKind = "raise"
)

// Token letters used inside an encoded action sequence.
const (
	TokenFold  = "F"
	TokenCall  = "C"
	TokenCheck = "X"
	TokenRaise = "R"
)

// SequencePrefix starts every pre-flop action sequence.
const SequencePrefix = "PF:"

type Card struct {
	Rank int
	Suit byte
} // e.g. "As" => rank 14, suit 's'
