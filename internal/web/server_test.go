package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sweeney/fridge-monitor/internal/clock"
	"github.com/sweeney/fridge-monitor/internal/dispatch"
	"github.com/sweeney/fridge-monitor/internal/edge"
	"github.com/sweeney/fridge-monitor/internal/export"
	"github.com/sweeney/fridge-monitor/internal/logic"
	"github.com/sweeney/fridge-monitor/internal/status"
	"github.com/sweeney/fridge-monitor/internal/store"
)

// day10 is 2000-03-11T00:00:00Z.
const day10 = logic.Timestamp(10 * 86400)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *status.Tracker) {
	t.Helper()
	cfg := status.Config{
		DeviceID:    "f1",
		PollMs:      100,
		DebounceMs:  250,
		SampleMs:    10000,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPPort:    ":8080",
	}
	tr := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), cfg)
	tr.SetClock(func() time.Time { return clock.ToTime(day10 + 86400 - 1) })
	srv := New(":0", tr, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func seededRepo(t *testing.T) *store.Memory {
	t.Helper()
	repo := store.NewMemory()
	for i := 0; i < 3; i++ {
		start := day10 + logic.Timestamp(i)*logic.LongPeriod
		rec := logic.AggregationRecord{
			Start: start,
			End:   start + logic.LongPeriod,
			TempLongRecord: logic.TempLongRecord{
				TVCSum: 5 * logic.LongPeriod, TVCSeconds: logic.LongPeriod,
				TVCMin: 5, TVCMax: 5, TVCObserved: true,
			},
			DoorCount:             uint16(i + 1),
			PowerAvailableSeconds: logic.LongPeriod,
			RecordsRead:           1,
		}
		if err := repo.Save(context.Background(), rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	return repo
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Observe(dispatch.View{
		DoorOpen: false,
		PowerOn:  true,
		Vaccine:  logic.Celsius(4),
		State:    logic.AlarmState{Kind: logic.InRange},
	})
	tr.UpdateInputs(true, edge.EventCounts{DoorOpened: 5, DoorClosed: 5})
	tr.SetMQTTConnected(true, 0)

	resp, body := get(t, ts.URL+"/index.json")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(body, &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Door.State != "CLOSED" || sj.Status.Power.State != "ON" {
		t.Errorf("states: door=%s power=%s", sj.Status.Door.State, sj.Status.Power.State)
	}
	if !sj.Status.Ready || !sj.Status.MQTT.Connected {
		t.Error("expected Ready and MQTT connected")
	}
	if sj.Status.Counts.DoorOpened != 5 {
		t.Errorf("Counts.DoorOpened: got %d, want 5", sj.Status.Counts.DoorOpened)
	}
	if sj.Status.Config.SampleMs != 10000 {
		t.Errorf("Config.SampleMs: got %d", sj.Status.Config.SampleMs)
	}
}

func TestJSONUnknownStateBeforeFirstMessage(t *testing.T) {
	ts, _ := newTestServer(t)

	_, body := get(t, ts.URL+"/index.json")
	var sj status.StatusJSON
	json.Unmarshal(body, &sj)

	if sj.Status.Door.State != status.Unknown || sj.Status.Temperature.State != status.Unknown {
		t.Errorf("expected UNKNOWN, got door=%s temp=%s", sj.Status.Door.State, sj.Status.Temperature.State)
	}
}

func TestHTMLEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Observe(dispatch.View{
		DoorOpen:        true,
		DoorOpenSeconds: 400,
		PowerOn:         true,
		Vaccine:         logic.Celsius(9.25),
		State:           logic.AlarmState{Kind: logic.HotAlarm},
		Alarms:          dispatch.AlarmFlags{Door: true, TempHigh: true},
	})

	for _, path := range []string{"/", "/index.html"} {
		resp, body := get(t, ts.URL+path)
		if resp.StatusCode != 200 {
			t.Errorf("%s status: got %d, want 200", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s Content-Type: got %q", path, ct)
		}
		page := string(body)
		for _, want := range []string{"9.25 °C", "HOT_ALARM", "OPEN for P0DT0H6M40S", `class="alarm"`} {
			if !strings.Contains(page, want) {
				t.Errorf("%s: page missing %q", path, want)
			}
		}
		if strings.Contains(page, "records.xlsx") {
			t.Errorf("%s: record links shown without a store", path)
		}
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := get(t, ts.URL+"/nonexistent")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("metrics output missing go collector")
	}
}

func TestRecordsDisabledWithoutStore(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, path := range []string{"/records.json", "/daily.json", "/records.xlsx"} {
		if resp, _ := get(t, ts.URL+path); resp.StatusCode != 404 {
			t.Errorf("%s: got %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestRecordsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, WithRepository(seededRepo(t)))

	resp, body := get(t, ts.URL+"/records.json?from=2000-03-11T08:00:00Z&to=2000-03-12T00:00:00Z")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d: %s", resp.StatusCode, body)
	}
	var rj RecordsJSON
	if err := json.Unmarshal(body, &rj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rj.Records) != 2 {
		t.Fatalf("records: got %d, want 2", len(rj.Records))
	}
	if rj.Records[0].Start != "2000-03-11T08:00:00Z" || rj.Records[0].DoorCount != 2 {
		t.Errorf("first record: %+v", rj.Records[0])
	}
}

func TestRecordsDefaultRange(t *testing.T) {
	ts, _ := newTestServer(t, WithRepository(seededRepo(t)))

	_, body := get(t, ts.URL+"/records.json")
	var rj RecordsJSON
	if err := json.Unmarshal(body, &rj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The tracker clock reads one second before the end of the day, so the
	// last 24 hours cover every record of that day.
	if len(rj.Records) != 3 {
		t.Errorf("records: got %d, want 3", len(rj.Records))
	}
}

func TestRecordsBadRange(t *testing.T) {
	ts, _ := newTestServer(t, WithRepository(seededRepo(t)))

	for _, q := range []string{"?from=yesterday", "?from=2000-03-12T00:00:00Z&to=2000-03-11T00:00:00Z"} {
		if resp, _ := get(t, ts.URL+"/records.json"+q); resp.StatusCode != 400 {
			t.Errorf("%s: got %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestDailyEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, WithRepository(seededRepo(t)))

	resp, body := get(t, ts.URL+"/daily.json?day=2000-03-11")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d: %s", resp.StatusCode, body)
	}
	var dj DailyJSON
	if err := json.Unmarshal(body, &dj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dj.Records != 3 || dj.Summary.DoorCount != 6 || dj.Summary.PowerAvailable != "P1DT0S" {
		t.Errorf("daily: %+v %+v", dj, dj.Summary)
	}

	if resp, _ := get(t, ts.URL+"/daily.json?day=2000-03-20"); resp.StatusCode != 404 {
		t.Errorf("empty day: got %d, want 404", resp.StatusCode)
	}
	if resp, _ := get(t, ts.URL+"/daily.json?day=march"); resp.StatusCode != 400 {
		t.Errorf("bad day: got %d, want 400", resp.StatusCode)
	}
}

func TestExportEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, WithRepository(seededRepo(t)))

	resp, body := get(t, ts.URL+"/records.xlsx?from=2000-03-11T00:00:00Z&to=2000-03-12T00:00:00Z")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "records.xlsx") {
		t.Errorf("Content-Disposition: %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.RecordsSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("rows: got %d, want header + 3", len(rows))
	}
}
