package domain

// Status is the closed taxonomy of probe outcomes. It is used verbatim as a
// metric label value, so the set must stay small and fixed.
type Status string

const (
	StatusSuccess                Status = "success"
	StatusNameLookupError        Status = "name_lookup_error"
	StatusTimeout                Status = "timeout"
	StatusDestinationUnreachable Status = "destination_unreachable"
	StatusNoResponseError        Status = "no_response_error"
	StatusUnknownError           Status = "unknown_error"
)

// Statuses lists every status in a stable order.
var Statuses = []Status{
	StatusSuccess,
	StatusNameLookupError,
	StatusTimeout,
	StatusDestinationUnreachable,
	StatusNoResponseError,
	StatusUnknownError,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}
