package escrow

import "fmt"

// InvoiceStatus is the lifecycle state of a factored invoice. The numeric
// values are part of the invoice record layout and must not be reordered.
type InvoiceStatus uint8

const (
	StatusPending   InvoiceStatus = 0
	StatusListed    InvoiceStatus = 1
	StatusSold      InvoiceStatus = 2
	StatusRepaid    InvoiceStatus = 3
	StatusCancelled InvoiceStatus = 4
	StatusDefaulted InvoiceStatus = 5
)

var statusNames = map[InvoiceStatus]string{
	StatusPending:   "pending",
	StatusListed:    "listed",
	StatusSold:      "sold",
	StatusRepaid:    "repaid",
	StatusCancelled: "cancelled",
	StatusDefaulted: "defaulted",
}

// String returns the lowercase name of the status.
func (s InvoiceStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// IsValid reports whether the status is one of the defined lifecycle states.
func (s InvoiceStatus) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal reports whether the status admits no further transitions.
// Repaid and Cancelled records are normally deleted on close; Defaulted
// records are retained as a permanent marker.
func (s InvoiceStatus) IsTerminal() bool {
	switch s {
	case StatusRepaid, StatusCancelled, StatusDefaulted:
		return true
	default:
		return false
	}
}

// ParseStatus maps a status name back to its enum value.
func ParseStatus(name string) (InvoiceStatus, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown invoice status %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s InvoiceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *InvoiceStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
