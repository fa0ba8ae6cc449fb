package viewer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/YashSaxena9/loggery"
)

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", url, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s response: %v", url, err)
	}
}

func TestLogsEndpointReturnsRetainedRecords(t *testing.T) {
	pub, _, ts := newTestServer(t, 16)
	pub.Publish(loggery.LevelTrace, "t")
	pub.Publish(loggery.LevelInfo, "i")
	pub.Publish(loggery.LevelWarn, "w")
	pub.Publish(loggery.LevelError, "e")

	var page LogPage
	getJSON(t, ts.URL+"/api/logs", &page)
	if len(page.Events) != 4 {
		t.Fatalf("len(Events) = %d, want 4", len(page.Events))
	}
	if page.Next != 4 {
		t.Errorf("Next = %d, want 4", page.Next)
	}
	for i, ev := range page.Events {
		if ev.Seq != uint64(i+1) {
			t.Errorf("Events[%d].Seq = %d, want %d", i, ev.Seq, i+1)
		}
	}
}

func TestLogsEndpointLevelFilter(t *testing.T) {
	pub, _, ts := newTestServer(t, 16)
	pub.Publish(loggery.LevelInfo, "i")
	pub.Publish(loggery.LevelWarn, "w")
	pub.Publish(loggery.LevelError, "e")

	var page LogPage
	getJSON(t, ts.URL+"/api/logs?level=warn", &page)
	if len(page.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(page.Events))
	}
	if page.Events[0].Message != "w" || page.Events[1].Message != "e" {
		t.Errorf("Events = [%q, %q], want [w, e]", page.Events[0].Message, page.Events[1].Message)
	}
	// Next covers the filtered scan, not just the returned records.
	if page.Next != 3 {
		t.Errorf("Next = %d, want 3", page.Next)
	}
}

func TestLogsEndpointSinceCursor(t *testing.T) {
	pub, _, ts := newTestServer(t, 16)
	for _, msg := range []string{"a", "b", "c", "d"} {
		pub.Publish(loggery.LevelInfo, msg)
	}

	var page LogPage
	getJSON(t, ts.URL+"/api/logs?since=2", &page)
	if len(page.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(page.Events))
	}
	if page.Events[0].Seq != 3 || page.Events[1].Seq != 4 {
		t.Errorf("Seqs = [%d, %d], want [3, 4]", page.Events[0].Seq, page.Events[1].Seq)
	}
}

func TestLogsEndpointLimitTruncates(t *testing.T) {
	pub, _, ts := newTestServer(t, 16)
	for _, msg := range []string{"a", "b", "c", "d"} {
		pub.Publish(loggery.LevelInfo, msg)
	}

	var page LogPage
	getJSON(t, ts.URL+"/api/logs?limit=2", &page)
	if len(page.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(page.Events))
	}
	// A truncated page resumes from the last returned record.
	if page.Next != 2 {
		t.Fatalf("Next = %d, want 2", page.Next)
	}

	getJSON(t, ts.URL+"/api/logs?limit=2&since=2", &page)
	if len(page.Events) != 2 || page.Events[0].Seq != 3 {
		t.Fatalf("second page = %+v, want seqs [3, 4]", page.Events)
	}
	if page.Next != 4 {
		t.Errorf("second page Next = %d, want 4", page.Next)
	}
}

func TestLogsEndpointEmptyPageIsNotNull(t *testing.T) {
	_, _, ts := newTestServer(t, 16)

	resp, err := http.Get(ts.URL + "/api/logs")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `"events":[]`) {
		t.Errorf("body = %s, want an empty events array", body)
	}
}

func TestLogsEndpointMethodNotAllowed(t *testing.T) {
	_, _, ts := newTestServer(t, 16)

	resp, err := http.Post(ts.URL+"/api/logs", "application/json", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestStatsEndpoint(t *testing.T) {
	pub, _, ts := newTestServer(t, 16)
	pub.Publish(loggery.LevelInfo, "a")
	pub.Publish(loggery.LevelInfo, "b")
	pub.Publish(loggery.LevelError, "c")

	var stats Stats
	getJSON(t, ts.URL+"/api/stats", &stats)
	if stats.TotalPublished != 3 {
		t.Errorf("TotalPublished = %d, want 3", stats.TotalPublished)
	}
	if stats.LastSeq != 3 {
		t.Errorf("LastSeq = %d, want 3", stats.LastSeq)
	}
	if stats.BufferLen != 3 || stats.BufferCap != 16 {
		t.Errorf("buffer = %d/%d, want 3/16", stats.BufferLen, stats.BufferCap)
	}
	if stats.Levels["INFO"] != 2 || stats.Levels["ERROR"] != 1 {
		t.Errorf("Levels = %v, want INFO:2 ERROR:1", stats.Levels)
	}
	if stats.DroppedSubs != 0 {
		t.Errorf("DroppedSubs = %d, want 0", stats.DroppedSubs)
	}
	if len(stats.Subscriptions) != 0 {
		t.Errorf("Subscriptions = %+v, want none", stats.Subscriptions)
	}
}

func TestStatsEndpointListsSubscriptions(t *testing.T) {
	_, v, ts := newTestServer(t, 16)
	dialWS(t, ts, "level=warn")

	waitFor(t, 2*time.Second, func() bool { return v.Registry().Count() == 1 }, "subscription to register")

	var stats Stats
	getJSON(t, ts.URL+"/api/stats", &stats)
	if len(stats.Subscriptions) != 1 {
		t.Fatalf("len(Subscriptions) = %d, want 1", len(stats.Subscriptions))
	}
	sub := stats.Subscriptions[0]
	if sub.Level != "WARN" {
		t.Errorf("Level = %q, want WARN", sub.Level)
	}
	if sub.ID == "" || sub.RemoteAddr == "" {
		t.Errorf("stats missing identity: %+v", sub)
	}
}

func TestIndexPage(t *testing.T) {
	_, _, ts := newTestServer(t, 16)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "loggery") {
		t.Error("index page does not mention loggery")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	_, _, ts := newTestServer(t, 16)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestWSRejectedAfterShutdown(t *testing.T) {
	_, v, ts := newTestServer(t, 16)
	if err := v.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	resp, err := http.Get(ts.URL + "/ws")
	if err != nil {
		t.Fatalf("GET /ws failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}
