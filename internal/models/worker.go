package models

type Classification string

const (
	ClassificationEmployee   Classification = "employee"
	ClassificationContractor Classification = "contractor"
	ClassificationUnknown    Classification = "unknown"
)

type PayScale string

const (
	ScaleHourly  PayScale = "hourly"
	ScaleMonthly PayScale = "monthly"
	ScaleAnnual  PayScale = "annual"
)

// Hours used to bring monthly and annual pay down to an hourly figure.
const (
	HoursPerMonth = 173.33
	HoursPerYear  = 2080.0
)

type Location struct {
	Country string `json:"country"`
	State   string `json:"state,omitempty"`
}

type Compensation struct {
	Rate     float64  `json:"rate"`
	Currency string   `json:"currency"`
	Scale    PayScale `json:"scale"`
}

type Employment struct {
	JobTitle string `json:"jobTitle,omitempty"`
	Status   string `json:"status,omitempty"`
}

// WorkerRecord is a single roster entry, employee or contractor.
type WorkerRecord struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email,omitempty"`
	Classification Classification `json:"classification"`
	Location       Location       `json:"location"`
	Compensation   Compensation   `json:"compensation"`
	Employment     Employment     `json:"employment"`
}

// HourlyRate normalises the compensation to an hourly estimate.
// Unknown scales are treated as hourly.
func (w *WorkerRecord) HourlyRate() float64 {
	rate := w.Compensation.Rate
	if rate < 0 {
		rate = 0
	}
	switch w.Compensation.Scale {
	case ScaleMonthly:
		return rate / HoursPerMonth
	case ScaleAnnual:
		return rate / HoursPerYear
	default:
		return rate
	}
}

// Roster is the reconciled worker list plus the counts reported by the source.
type Roster struct {
	Workers        []WorkerRecord
	EmployeesCount int
	ContractsCount int
	TotalWorkers   int
}
