package worker

import "github.com/gyeh/npi-lookup/internal/npi"

// Status is the outcome class of one row.
type Status string

const (
	StatusActive  Status = "Active"
	StatusInvalid Status = "Invalid"
	StatusError   Status = "Error"
)

// Placeholders used when a row has no provider data.
const (
	NameNotFound = "Not Found"
	NameError    = "Error"
	PhoneMissing = "---"
)

// Row is one line of the results table.
type Row struct {
	NPI    string `json:"npi"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Outcome is the result of looking up one NPI. Err is set on failure,
// Provider is set on success, and both are nil when the registry has no record.
type Outcome struct {
	NPI      string
	Provider *npi.Provider
	Err      error
}

// Row converts the outcome into a results table row.
func (o Outcome) Row() Row {
	switch {
	case o.Err != nil:
		return Row{NPI: o.NPI, Name: NameError, Phone: PhoneMissing, Status: StatusError, Error: o.Err.Error()}
	case o.Provider == nil:
		return Row{NPI: o.NPI, Name: NameNotFound, Phone: PhoneMissing, Status: StatusInvalid}
	}

	name := o.Provider.Name
	if name == "" {
		name = NameNotFound
	}
	phone := o.Provider.Phone
	if phone == "" {
		phone = npi.PhoneNotFound
	}
	return Row{NPI: o.NPI, Name: name, Phone: phone, Status: StatusActive}
}
