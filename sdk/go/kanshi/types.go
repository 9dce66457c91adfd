package kanshi

// Address is the normalized postal address of a customer.
type Address struct {
	StreetNumber string `json:"street_number"`
	StreetName   string `json:"street_name"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
}

// Customer mirrors the server's normalized customer record. The
// supplemental fields are decoded server-side from the upstream street
// name and are empty when the record does not carry them.
type Customer struct {
	ID        string  `json:"_id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Address   Address `json:"address"`

	Age          *int     `json:"age,omitempty"`
	Occupation   string   `json:"occupation,omitempty"`
	Citizenship  string   `json:"citizenship,omitempty"`
	Tenure       string   `json:"tenure,omitempty"`
	Products     []string `json:"products,omitempty"`
	TaxResidency string   `json:"taxResidency,omitempty"`
}

// Health is the body of GET /health.
type Health struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Uptime      int64  `json:"uptime_seconds"`
	Credentials int    `json:"credentials"`
	Degraded    bool   `json:"degraded"`
}

// EventType names an adjudication stream event.
type EventType string

const (
	EventRunStarted      EventType = "run_started"
	EventToken           EventType = "token"
	EventToolCallStarted EventType = "tool_call_started"
	EventRunFinished     EventType = "run_finished"
	EventError           EventType = "error"
)

// Event is one decoded server-sent event. Only the fields relevant to Type
// are populated. TS is seconds since the Unix epoch.
type Event struct {
	Type       EventType `json:"-"`
	CustomerID string    `json:"customer_id,omitempty"` // run_started, run_finished
	Delta      string    `json:"delta,omitempty"`       // token
	ToolCallID string    `json:"id,omitempty"`          // tool_call_started
	Tool       string    `json:"tool,omitempty"`        // tool_call_started
	Message    string    `json:"message,omitempty"`     // error
	TS         float64   `json:"ts,omitempty"`
}

// Terminal reports whether no further events follow e.
func (e Event) Terminal() bool {
	return e.Type == EventRunFinished || e.Type == EventError
}
