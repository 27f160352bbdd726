package gradio

import (
	"encoding/json"
	"fmt"
	"io"
)

// Event names understood by Gradio clients.
const (
	EventComplete  = "complete"
	EventError     = "error"
	EventHeartbeat = "heartbeat"
)

// WriteEvent writes a single server-sent event.
func WriteEvent(w io.Writer, name string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// WriteOutcome renders a finished call: the output wrapped in a one-element
// JSON array, or a null error payload.
func WriteOutcome(w io.Writer, o Outcome) error {
	if o.Err != nil {
		return WriteEvent(w, EventError, []byte("null"))
	}
	data, err := json.Marshal([]string{o.Output})
	if err != nil {
		return err
	}
	return WriteEvent(w, EventComplete, data)
}
