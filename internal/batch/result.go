package batch

import "time"

// Kind distinguishes registration runs from update runs.
type Kind string

const (
	KindRegister Kind = "register"
	KindUpdate   Kind = "update"
)

// State is a record's position in the processing pipeline. Every record
// ends as StateRecorded or StateErrored.
type State string

const (
	StateBuilt               State = "built"
	StateValidated           State = "validated"
	StateDeviceRegistered    State = "device_registered"
	StateOwnershipRegistered State = "ownership_registered"
	StateRecorded            State = "recorded"
	StateErrored             State = "errored"
)

// RegistrationEntry is the outcome of one registration record. The result
// fields hold the registry's first sonuc message for each call.
type RegistrationEntry struct {
	Serial          string `json:"esu_seri_no"`
	DeviceResult    string `json:"esu_kayit_sonucu"`
	OwnershipResult string `json:"mukellef_kayit_sonucu"`
	Error           string `json:"hata,omitempty"`

	state State
}

// State returns the record's final state.
func (e RegistrationEntry) State() State { return e.state }

// UpdateEntry is the outcome of one update record.
type UpdateEntry struct {
	Serial       string `json:"esu_seri_no"`
	UpdateResult string `json:"guncelleme_kayit_sonucu"`
	Error        string `json:"hata,omitempty"`

	state State
}

// State returns the record's final state.
func (e UpdateEntry) State() State { return e.state }

// Summary is the aggregated outcome of a batch, one entry per input record
// in input order.
type Summary[E any] struct {
	Results []E `json:"sonuclar"`
	Total   int `json:"toplam"`
}

// RegistrationSummary is the report of a registration run.
type RegistrationSummary = Summary[RegistrationEntry]

// UpdateSummary is the report of an update run.
type UpdateSummary = Summary[UpdateEntry]

// Run describes a finished batch for the run ledger.
type Run struct {
	ID         string
	Kind       Kind
	Parallel   bool
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Errored    int
	Entries    []RunEntry
}

// RunEntry is the ledger view of one record. Results holds the registry
// messages in call order.
type RunEntry struct {
	Serial  string
	State   State
	Results []string
	Error   string
}

func (e RegistrationEntry) runEntry() RunEntry {
	var results []string
	if e.DeviceResult != "" {
		results = append(results, e.DeviceResult)
	}
	if e.OwnershipResult != "" {
		results = append(results, e.OwnershipResult)
	}
	return RunEntry{Serial: e.Serial, State: e.state, Results: results, Error: e.Error}
}

func (e UpdateEntry) runEntry() RunEntry {
	var results []string
	if e.UpdateResult != "" {
		results = append(results, e.UpdateResult)
	}
	return RunEntry{Serial: e.Serial, State: e.state, Results: results, Error: e.Error}
}
