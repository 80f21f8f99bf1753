package deel

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"compliance-rag/internal/models"
)

type Person struct {
	ID           string  `json:"id"`
	FullName     string  `json:"full_name"`
	Emails       []Email `json:"emails"`
	Country      string  `json:"country"`
	State        string  `json:"state"`
	JobTitle     string  `json:"job_title"`
	HiringType   string  `json:"hiring_type"`
	HiringStatus string  `json:"hiring_status"`
}

type Email struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Contract struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Type         string              `json:"type"`
	Status       string              `json:"status"`
	Country      string              `json:"country"`
	State        string              `json:"state"`
	Worker       ContractWorker      `json:"worker"`
	Compensation CompensationDetails `json:"compensation_details"`
}

type ContractWorker struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Country  string `json:"country"`
}

type CompensationDetails struct {
	Amount       Amount `json:"amount"`
	CurrencyCode string `json:"currency_code"`
	Scale        string `json:"scale"`
}

// Amount accepts both JSON numbers and numeric strings.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*a = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*a = 0
		return nil
	}
	*a = Amount(v)
	return nil
}

var _ json.Unmarshaler = (*Amount)(nil)

// BuildRoster merges people and contracts into one record per worker.
// Contracts supply compensation; people supply identity and location. A
// contract whose worker is not among the people still yields a record.
func BuildRoster(people []Person, contracts []Contract) *models.Roster {
	byID := make(map[string]*models.WorkerRecord, len(people))
	order := make([]string, 0, len(people)+len(contracts))

	for _, p := range people {
		if p.ID == "" {
			continue
		}
		if _, dup := byID[p.ID]; dup {
			continue
		}
		byID[p.ID] = &models.WorkerRecord{
			ID:             p.ID,
			Name:           p.FullName,
			Email:          primaryEmail(p.Emails),
			Classification: classifyHiringType(p.HiringType),
			Location: models.Location{
				Country: p.Country,
				State:   p.State,
			},
			Employment: models.Employment{
				JobTitle: p.JobTitle,
				Status:   p.HiringStatus,
			},
		}
		order = append(order, p.ID)
	}

	for _, ct := range contracts {
		id := ct.Worker.ID
		if id == "" {
			id = ct.ID
		}
		w, ok := byID[id]
		if !ok {
			w = &models.WorkerRecord{
				ID:             id,
				Name:           ct.Worker.FullName,
				Email:          ct.Worker.Email,
				Classification: models.ClassificationUnknown,
				Location: models.Location{
					Country: firstNonEmpty(ct.Country, ct.Worker.Country),
					State:   ct.State,
				},
				Employment: models.Employment{
					JobTitle: ct.Title,
					Status:   ct.Status,
				},
			}
			byID[id] = w
			order = append(order, id)
		}

		if c := classifyContractType(ct.Type); c != models.ClassificationUnknown {
			w.Classification = c
		}
		if w.Location.Country == "" {
			w.Location.Country = firstNonEmpty(ct.Country, ct.Worker.Country)
		}
		if w.Location.State == "" {
			w.Location.State = ct.State
		}
		if ct.Compensation.Amount > 0 && w.Compensation.Rate == 0 {
			rate, scale := normalizeScale(float64(ct.Compensation.Amount), ct.Compensation.Scale)
			w.Compensation = models.Compensation{
				Rate:     rate,
				Currency: strings.ToUpper(ct.Compensation.CurrencyCode),
				Scale:    scale,
			}
		}
	}

	workers := make([]models.WorkerRecord, 0, len(order))
	for _, id := range order {
		workers = append(workers, *byID[id])
	}

	return &models.Roster{
		Workers:        workers,
		EmployeesCount: len(people),
		ContractsCount: len(contracts),
		TotalWorkers:   len(workers),
	}
}

func primaryEmail(emails []Email) string {
	for _, e := range emails {
		if e.Type == "work" && e.Value != "" {
			return e.Value
		}
	}
	for _, e := range emails {
		if e.Value != "" {
			return e.Value
		}
	}
	return ""
}

func classifyHiringType(hiringType string) models.Classification {
	switch strings.ToLower(hiringType) {
	case "employee", "eor", "direct_employee", "peo":
		return models.ClassificationEmployee
	case "contractor", "independent_contractor":
		return models.ClassificationContractor
	default:
		return models.ClassificationUnknown
	}
}

func classifyContractType(contractType string) models.Classification {
	t := strings.ToLower(contractType)
	switch {
	case t == "eor", t == "global_payroll", t == "peo", strings.Contains(t, "employee"):
		return models.ClassificationEmployee
	case strings.HasPrefix(t, "pay_as_you_go"), strings.HasPrefix(t, "ongoing"),
		t == "milestones", t == "fixed_rate", strings.Contains(t, "contractor"):
		return models.ClassificationContractor
	default:
		return models.ClassificationUnknown
	}
}

// normalizeScale maps Deel pay frequencies onto hourly, monthly or annual.
// Weekly and daily pay are converted to monthly and hourly respectively.
func normalizeScale(amount float64, scale string) (float64, models.PayScale) {
	switch strings.ToLower(strings.TrimSpace(scale)) {
	case "hour", "hourly", "per_hour":
		return amount, models.ScaleHourly
	case "day", "daily", "per_day":
		return amount / 8, models.ScaleHourly
	case "week", "weekly", "per_week":
		return amount * 52 / 12, models.ScaleMonthly
	case "semimonthly":
		return amount * 2, models.ScaleMonthly
	case "month", "monthly", "per_month":
		return amount, models.ScaleMonthly
	case "year", "yearly", "annual", "annually", "per_year":
		return amount, models.ScaleAnnual
	default:
		return amount, models.ScaleMonthly
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
