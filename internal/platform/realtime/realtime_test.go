package realtime

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestDecodeChangeExtractsRecord(t *testing.T) {
	frame := []byte(`{
		"topic": "realtime:public:messages:channel_id=eq.1",
		"event": "postgres_changes",
		"payload": {
			"data": {
				"type": "INSERT",
				"schema": "public",
				"table": "messages",
				"record": {"id": "7", "channel_id": "1", "content": "hello"}
			}
		},
		"ref": null
	}`)

	event, ok := decodeChange(frame)
	if !ok {
		t.Fatal("expected a decodable change")
	}
	if event.Type != "INSERT" || event.Table != "messages" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if got := gjson.GetBytes(event.Record, "content").String(); got != "hello" {
		t.Fatalf("record not preserved: %s", event.Record)
	}
}

func TestDecodeChangeRejectsNonChangeFrames(t *testing.T) {
	for _, frame := range []string{
		`{"topic":"phoenix","event":"phx_reply","payload":{"status":"ok"}}`,
		`{"topic":"realtime:public:messages","event":"postgres_changes","payload":{}}`,
		`{"topic":"realtime:public:messages","event":"postgres_changes","payload":{"data":{"type":"INSERT"}}}`,
	} {
		if _, ok := decodeChange([]byte(frame)); ok {
			t.Fatalf("frame must not decode: %s", frame)
		}
	}
}

func TestNewDerivesWebsocketURL(t *testing.T) {
	c := New("https://proj.example.co", "anon", nil)
	want := "wss://proj.example.co/realtime/v1/websocket?apikey=anon&vsn=1.0.0"
	if c.url != want {
		t.Fatalf("unexpected URL:\n got %s\nwant %s", c.url, want)
	}

	c = New("http://localhost:54321/", "anon", nil)
	if c.url != "ws://localhost:54321/realtime/v1/websocket?apikey=anon&vsn=1.0.0" {
		t.Fatalf("unexpected URL: %s", c.url)
	}
}
