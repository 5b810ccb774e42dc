package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/blockberries/decreeberry/types"
)

func TestLoggerEmitsWireSchemaFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, 3)

	l.Sent(&types.Message{
		Sender:   3,
		Type:     types.MessageTypePrepare,
		Proposal: types.ProposalNumber{Counter: 2, Proposer: 3},
		Value:    "X",
	})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}

	want := map[string]any{
		"action":        "sent",
		"message_type":  "prepare",
		"proposal_num":  "2.3",
		"message_value": "X",
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s = %v, want %v", k, line[k], v)
		}
	}
	if line["sender_id"] != float64(3) {
		t.Errorf("sender_id = %v, want 3", line["sender_id"])
	}
	if line["peer_id"] != float64(3) {
		t.Errorf("peer_id = %v, want 3", line["peer_id"])
	}
}

func TestLoggerChosen(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, 1)

	l.Chosen("X", types.ProposalNumber{Counter: 5, Proposer: 1})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatal(err)
	}
	if line["action"] != "chose" || line["message_value"] != "X" || line["proposal_num"] != "5.1" {
		t.Errorf("unexpected chose line: %s", buf.String())
	}
}

func TestLoggerDropped(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, 1)

	l.Dropped(errors.New("decoding inbound frame"))

	if !strings.Contains(buf.String(), `"action":"dropped"`) {
		t.Errorf("missing dropped action: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "decoding inbound frame") {
		t.Errorf("missing error detail: %s", buf.String())
	}
}
