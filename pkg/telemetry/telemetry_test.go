package telemetry

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/gwillem/crawler/pkg/control"
	"github.com/gwillem/crawler/pkg/gridmap"
)

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	msgs []published
}

func (f *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	f.msgs = append(f.msgs, published{topic, retained, payload.([]byte)})
	return nil
}

func snapshot(tick int, g *gridmap.Grid) control.Snapshot {
	return control.Snapshot{
		Tick:        tick,
		Supervision: "autonomous",
		Behavior:    "mapping",
		Heading:     90,
		Cursor:      gridmap.Point{X: 10, Y: 11},
		Speed:       100,
		Decision:    "advance",
		Distance:    42,
		DistanceOK:  true,
		Grid:        g,
	}
}

func TestMQTTPublisher_Publish(t *testing.T) {
	fc := &fakeClient{}
	p := newMQTTPublisher(fc, "crawler/state")

	g := gridmap.New(3, 3)
	p.Publish(snapshot(1, g))
	p.Publish(snapshot(2, g))
	g2, _ := g.Clone()
	g2.Mark(gridmap.Point{X: 1, Y: 1}, gridmap.Visited)
	p.Publish(snapshot(3, g2))

	wantTopics := []string{"crawler/state", "crawler/state/map", "crawler/state", "crawler/state", "crawler/state/map"}
	if len(fc.msgs) != len(wantTopics) {
		t.Fatalf("published %d messages, want %d", len(fc.msgs), len(wantTopics))
	}
	for i, want := range wantTopics {
		if fc.msgs[i].topic != want {
			t.Errorf("message %d topic = %s, want %s", i, fc.msgs[i].topic, want)
		}
		if retained := strings.HasSuffix(want, "/map"); fc.msgs[i].retained != retained {
			t.Errorf("message %d retained = %v, want %v", i, fc.msgs[i].retained, retained)
		}
	}

	var got control.Snapshot
	if err := json.Unmarshal(fc.msgs[0].payload, &got); err != nil {
		t.Fatalf("state payload: %v", err)
	}
	if got.Tick != 1 || got.Heading != 90 || got.Cursor != (gridmap.Point{X: 10, Y: 11}) {
		t.Errorf("state payload = %+v", got)
	}
	if string(fc.msgs[4].payload) != "[[0,0,0],[0,1,0],[0,0,0]]" {
		t.Errorf("map payload = %s", fc.msgs[4].payload)
	}
}

func TestMQTTPublisher_NoGrid(t *testing.T) {
	fc := &fakeClient{}
	p := newMQTTPublisher(fc, "t")
	p.Publish(snapshot(1, nil))
	if len(fc.msgs) != 1 {
		t.Errorf("published %d messages, want 1", len(fc.msgs))
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read websocket: %v", err)
	}
	return m
}

func TestHub_WebSocket(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	g := gridmap.New(3, 3)
	hub.Publish(snapshot(1, g))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// a new client gets the latest state and map first
	if m := readMessage(t, conn); m.Type != "state" || m.State.Tick != 1 {
		t.Errorf("first message = %+v, want state tick 1", m)
	}
	if m := readMessage(t, conn); m.Type != "map" || m.Map == nil || m.Map.Width() != 3 {
		t.Errorf("second message = %+v, want 3x3 map", m)
	}

	g2, _ := g.Clone()
	g2.Mark(gridmap.Point{X: 0, Y: 2}, gridmap.Visited)
	hub.Publish(snapshot(2, g2))

	if m := readMessage(t, conn); m.Type != "state" || m.State.Tick != 2 {
		t.Errorf("third message = %+v, want state tick 2", m)
	}
	m := readMessage(t, conn)
	if m.Type != "map" {
		t.Fatalf("fourth message type = %s, want map", m.Type)
	}
	if c, _ := m.Map.At(gridmap.Point{X: 0, Y: 2}); c != gridmap.Visited {
		t.Error("map update lost the new visited cell")
	}
	if hub.Clients() != 1 {
		t.Errorf("clients = %d, want 1", hub.Clients())
	}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHub_HTTP(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	if code, _ := get(t, srv.URL+"/state.json"); code != http.StatusServiceUnavailable {
		t.Errorf("state before publish = %d, want 503", code)
	}
	if code, _ := get(t, srv.URL+"/frame.jpg"); code != http.StatusServiceUnavailable {
		t.Errorf("frame without camera = %d, want 503", code)
	}

	hub.Publish(snapshot(7, gridmap.New(2, 2)))
	hub.SetFrameSource(func() []byte { return []byte("jpeg") })

	code, body := get(t, srv.URL+"/state.json")
	if code != http.StatusOK || !strings.Contains(body, `"tick":7`) {
		t.Errorf("state = %d %s", code, body)
	}
	if code, body := get(t, srv.URL+"/map.json"); code != http.StatusOK || body != "[[0,0],[0,0]]" {
		t.Errorf("map = %d %s", code, body)
	}
	if code, body := get(t, srv.URL+"/frame.jpg"); code != http.StatusOK || body != "jpeg" {
		t.Errorf("frame = %d %s", code, body)
	}
}
