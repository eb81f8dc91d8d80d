package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/electroop-engineering/gib-esu/internal/esu"
	"github.com/electroop-engineering/gib-esu/internal/gib"
	"github.com/electroop-engineering/gib-esu/internal/records"
)

// fakeService answers every call through respond and tracks concurrency.
type fakeService struct {
	respond func(endpoint gib.Endpoint, serial string) (*gib.Response, error)
	delay   time.Duration

	mu    sync.Mutex
	calls []string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeService) Company() esu.Company {
	return esu.NewCompany("J000", "1234567890", "Test Şarj A.Ş.", "ŞH/12345-1/00001")
}

func (f *fakeService) call(endpoint gib.Endpoint, serial string) (*gib.Response, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, string(endpoint)+" "+serial)
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(endpoint, serial)
	}
	return response(gib.StatusSuccess, serial, "0000", "Başarılı"), nil
}

func (f *fakeService) RegisterDevice(_ context.Context, d esu.Device) (*gib.Response, error) {
	return f.call(gib.EndpointRegister, d.Serial)
}

func (f *fakeService) RegisterOwnership(_ context.Context, s esu.OwnershipStatus) (*gib.Response, error) {
	return f.call(gib.EndpointOwnership, s.Serial)
}

func (f *fakeService) UpdateOwnership(_ context.Context, u esu.OwnershipUpdate) (*gib.Response, error) {
	return f.call(gib.EndpointUpdate, u.Serial)
}

func (f *fakeService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func response(status gib.Status, serial, code, msg string) *gib.Response {
	return &gib.Response{
		Status:  status,
		Results: []gib.Result{{Serial: serial, Sequence: 1, Code: code, Message: msg}},
	}
}

func registrationRow(serial string) records.Row {
	return records.Row{
		esu.ColSerial:          serial,
		esu.ColSocketKind:      "AC/DC",
		esu.ColSocketCount:     "2",
		esu.ColSocketDetail:    "Soket1:AC;Soket2:DC",
		esu.ColBrand:           "Vestel",
		esu.ColModel:           "EVC04",
		esu.ColProvinceCode:    "034",
		esu.ColDistrict:        "Kadıköy",
		esu.ColInvoiceDate:     "29.08.2024",
		esu.ColInvoiceRef:      "P01",
		esu.ColTaxpayerID:      "",
		esu.ColTaxpayerTitle:   "",
		esu.ColCertificateNo:   "",
		esu.ColCertificateDate: "",
		esu.ColOwnerID:         "",
		esu.ColOwnerTitle:      "",
	}
}

func updateRow(serial string) records.Row {
	return records.Row{
		esu.ColSerial:       serial,
		esu.ColProvinceCode: "034",
		esu.ColDistrict:     "Kadıköy",
		esu.ColOwnerID:      "12345678901",
		esu.ColOwnerTitle:   "Mülk Sahibi",
	}
}

func manyRows(n int) []records.Row {
	rows := make([]records.Row, n)
	for i := range rows {
		rows[i] = registrationRow(fmt.Sprintf("ESU%03d", i))
	}
	return rows
}

func TestRegister_Sequential(t *testing.T) {
	svc := &fakeService{}
	o := NewOrchestrator(svc)

	rows := []records.Row{registrationRow("AB535"), registrationRow("CD123")}
	summary, runID, err := o.Register(context.Background(), rows, false)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if runID == "" {
		t.Error("runID should be set")
	}

	if summary.Total != 2 || len(summary.Results) != 2 {
		t.Fatalf("summary = %+v, want 2 entries", summary)
	}
	for i, want := range []string{"AB535", "CD123"} {
		e := summary.Results[i]
		if e.Serial != want {
			t.Errorf("Results[%d].Serial = %q, want %q", i, e.Serial, want)
		}
		if e.DeviceResult != "Başarılı" || e.OwnershipResult != "Başarılı" {
			t.Errorf("Results[%d] = %+v, want both Başarılı", i, e)
		}
		if e.State() != StateRecorded {
			t.Errorf("Results[%d].State() = %s, want %s", i, e.State(), StateRecorded)
		}
	}

	want := []string{
		"/yeniEsuKayit AB535", "/esuMukellefDurum AB535",
		"/yeniEsuKayit CD123", "/esuMukellefDurum CD123",
	}
	for i, c := range want {
		if svc.calls[i] != c {
			t.Errorf("calls[%d] = %q, want %q", i, svc.calls[i], c)
		}
	}
}

func TestRegister_RejectionIsAnOutcome(t *testing.T) {
	svc := &fakeService{respond: func(_ gib.Endpoint, serial string) (*gib.Response, error) {
		return response(gib.StatusFailure, serial, "1000", "Basarisiz"), nil
	}}
	o := NewOrchestrator(svc)

	summary, _, err := o.Register(context.Background(), []records.Row{registrationRow("AB535")}, false)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	e := summary.Results[0]
	if e.DeviceResult != "Basarisiz" || e.OwnershipResult != "Basarisiz" {
		t.Errorf("entry = %+v, want Basarisiz outcomes", e)
	}
	if e.Error != "" {
		t.Errorf("Error = %q, want empty", e.Error)
	}
	if e.State() != StateRecorded {
		t.Errorf("State() = %s, want %s", e.State(), StateRecorded)
	}
}

func TestRegister_FailuresAreIsolated(t *testing.T) {
	transportErr := &gib.TransportError{Code: gib.CodeHTTPStatus, Endpoint: gib.EndpointOwnership, StatusCode: 503}
	svc := &fakeService{respond: func(endpoint gib.Endpoint, serial string) (*gib.Response, error) {
		if serial == "EF777" && endpoint == gib.EndpointOwnership {
			return nil, transportErr
		}
		return response(gib.StatusSuccess, serial, "0000", "Başarılı"), nil
	}}
	o := NewOrchestrator(svc)

	badCount := registrationRow("CD123")
	badCount[esu.ColSocketCount] = "3"

	conflicting := registrationRow("GH999")
	conflicting[esu.ColOwnerID] = "12345678901"
	conflicting[esu.ColOwnerTitle] = "Mülk Sahibi"

	rows := []records.Row{registrationRow("AB535"), badCount, registrationRow("EF777"), conflicting}
	summary, _, err := o.Register(context.Background(), rows, false)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if summary.Total != 4 {
		t.Fatalf("Total = %d, want 4", summary.Total)
	}

	tests := []struct {
		serial    string
		state     State
		errSubstr string
		device    string
	}{
		{"AB535", StateRecorded, "", "Başarılı"},
		{"CD123", StateErrored, esu.ErrSocketCount.Code, ""},
		{"EF777", StateErrored, gib.CodeHTTPStatus, "Başarılı"},
		{"GH999", StateErrored, esu.ErrInvoiceOrOwner.Code, ""},
	}
	for i, tt := range tests {
		e := summary.Results[i]
		if e.Serial != tt.serial {
			t.Errorf("Results[%d].Serial = %q, want %q", i, e.Serial, tt.serial)
		}
		if e.State() != tt.state {
			t.Errorf("%s: State() = %s, want %s", tt.serial, e.State(), tt.state)
		}
		if tt.errSubstr == "" && e.Error != "" {
			t.Errorf("%s: Error = %q, want empty", tt.serial, e.Error)
		}
		if tt.errSubstr != "" && !strings.Contains(e.Error, tt.errSubstr) {
			t.Errorf("%s: Error = %q, want it to mention %s", tt.serial, e.Error, tt.errSubstr)
		}
		if e.DeviceResult != tt.device {
			t.Errorf("%s: DeviceResult = %q, want %q", tt.serial, e.DeviceResult, tt.device)
		}
	}

	// Invalid rows never reach the registry.
	if got := svc.callCount(); got != 4 {
		t.Errorf("remote calls = %d, want 4", got)
	}
}

func TestRegister_ConcurrentMatchesSequential(t *testing.T) {
	rows := manyRows(30)
	rows[7][esu.ColSocketDetail] = "Soket1:AC"

	seq, _, err := NewOrchestrator(&fakeService{}).Register(context.Background(), rows, false)
	if err != nil {
		t.Fatalf("sequential Register() error = %v", err)
	}

	svc := &fakeService{delay: 2 * time.Millisecond}
	par, _, err := NewOrchestrator(svc, WithWorkers(4)).Register(context.Background(), rows, true)
	if err != nil {
		t.Fatalf("concurrent Register() error = %v", err)
	}

	if par.Total != seq.Total {
		t.Fatalf("Total = %d, want %d", par.Total, seq.Total)
	}
	for i := range seq.Results {
		if par.Results[i] != seq.Results[i] {
			t.Errorf("Results[%d] = %+v, want %+v", i, par.Results[i], seq.Results[i])
		}
	}
	if peak := svc.maxInFlight.Load(); peak > 4 {
		t.Errorf("max in-flight calls = %d, want <= 4", peak)
	}
}

func TestRegister_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := &fakeService{}
	rec := &recordingRecorder{}
	summary, _, err := NewOrchestrator(svc, WithRecorder(rec)).Register(ctx, manyRows(5), true)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Register() error = %v, want context.Canceled", err)
	}
	if summary.Total != 5 {
		t.Errorf("Total = %d, want 5", summary.Total)
	}
	for i, e := range summary.Results {
		if e.State() != StateErrored || e.Error == "" {
			t.Errorf("Results[%d] = %+v, want errored", i, e)
		}
	}
	if svc.callCount() != 0 {
		t.Errorf("remote calls = %d, want 0", svc.callCount())
	}
	if len(rec.runs) != 1 || rec.runs[0].Errored != 5 {
		t.Errorf("recorded runs = %+v, want one run with 5 errored", rec.runs)
	}
}

func TestUpdate(t *testing.T) {
	svc := &fakeService{}
	bad := updateRow("CD123")
	delete(bad, esu.ColOwnerID)

	summary, _, err := NewOrchestrator(svc).Update(context.Background(), []records.Row{updateRow("AB535"), bad}, true)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if summary.Total != 2 {
		t.Fatalf("Total = %d, want 2", summary.Total)
	}
	if e := summary.Results[0]; e.UpdateResult != "Başarılı" || e.State() != StateRecorded {
		t.Errorf("Results[0] = %+v", e)
	}
	if e := summary.Results[1]; e.State() != StateErrored || !strings.Contains(e.Error, esu.ErrOwnerPair.Code) {
		t.Errorf("Results[1] = %+v, want %s", e, esu.ErrOwnerPair.Code)
	}
	if svc.calls[0] != "/esuGuncelleme AB535" {
		t.Errorf("calls = %v", svc.calls)
	}
}

type recordingRecorder struct {
	mu   sync.Mutex
	runs []Run
	err  error
}

func (r *recordingRecorder) RecordRun(_ context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return r.err
}

func TestRecorder(t *testing.T) {
	rec := &recordingRecorder{err: errors.New("ledger down")}
	o := NewOrchestrator(&fakeService{}, WithRecorder(rec))
	o.newID = func() string { return "run-1" }

	_, runID, err := o.Register(context.Background(), []records.Row{registrationRow("AB535")}, false)
	if err != nil {
		t.Fatalf("Register() error = %v, ledger failures must not fail the run", err)
	}
	if runID != "run-1" {
		t.Errorf("runID = %q, want run-1", runID)
	}

	run := rec.runs[0]
	if run.ID != "run-1" || run.Kind != KindRegister || run.Parallel || run.Total != 1 || run.Errored != 0 {
		t.Errorf("run = %+v", run)
	}
	if got := run.Entries[0].Results; len(got) != 2 || got[0] != "Başarılı" {
		t.Errorf("entry results = %v", got)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		t.Error("FinishedAt before StartedAt")
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	bad := registrationRow("CD123")
	bad[esu.ColBrand] = ""

	o := NewOrchestrator(&fakeService{}, WithMetrics(m))
	if _, _, err := o.Register(context.Background(), []records.Row{registrationRow("AB535"), bad}, false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if got := testutil.ToFloat64(m.records.WithLabelValues("register", "recorded")); got != 1 {
		t.Errorf("recorded = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.records.WithLabelValues("register", "errored")); got != 1 {
		t.Errorf("errored = %v, want 1", got)
	}

	m.ObserveCall(gib.EndpointRegister, "success", 20*time.Millisecond)
	if got := testutil.ToFloat64(m.remoteCalls.WithLabelValues("/yeniEsuKayit", "success")); got != 1 {
		t.Errorf("remote calls = %v, want 1", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveCall(gib.EndpointRegister, "error", time.Second)
}

func TestReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gonderim_raporu.json")
	o := NewOrchestrator(&fakeService{}, WithReport(FileWriter{Path: path}))

	if _, _, err := o.Register(context.Background(), []records.Row{registrationRow("AB535")}, false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(data), "\n    \"sonuclar\": [") {
		t.Errorf("report should be indented by four spaces:\n%s", data)
	}
	if !strings.Contains(string(data), "Başarılı") {
		t.Errorf("report should keep non-ASCII text:\n%s", data)
	}
	if strings.Contains(string(data), "hata") {
		t.Errorf("successful entries should omit hata:\n%s", data)
	}

	var got struct {
		Sonuclar []map[string]string `json:"sonuclar"`
		Toplam   int                 `json:"toplam"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Toplam != 1 || got.Sonuclar[0]["esu_seri_no"] != "AB535" || got.Sonuclar[0]["mukellef_kayit_sonucu"] != "Başarılı" {
		t.Errorf("report = %+v", got)
	}
}

func TestReport_WriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "report.json")
	o := NewOrchestrator(&fakeService{}, WithReport(FileWriter{Path: path}))

	summary, _, err := o.Register(context.Background(), []records.Row{registrationRow("AB535")}, false)
	if err == nil {
		t.Fatal("Register() expected report write error")
	}
	if summary == nil || summary.Total != 1 {
		t.Errorf("summary should still be returned: %+v", summary)
	}
}

func TestDefaultWorkers(t *testing.T) {
	if DefaultWorkers() < 1 {
		t.Errorf("DefaultWorkers() = %d, want >= 1", DefaultWorkers())
	}
	if got := NewOrchestrator(&fakeService{}, WithWorkers(0)).Workers(); got != DefaultWorkers() {
		t.Errorf("Workers() = %d, want default %d", got, DefaultWorkers())
	}
	if got := NewOrchestrator(&fakeService{}, WithWorkers(3)).Workers(); got != 3 {
		t.Errorf("Workers() = %d, want 3", got)
	}
}
