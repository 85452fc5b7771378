package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/geogli/chatbot/internal/core/domain"
)

// writeSSE serializes one stream event in the wire format
// "event: <type>\ndata: <json>\n\n".
func writeSSE(w io.Writer, event domain.StreamEvent) error {
	payload, err := marshalEventData(event)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}

func marshalEventData(event domain.StreamEvent) ([]byte, error) {
	switch event.Type {
	case domain.EventToken:
		return json.Marshal(map[string]string{"t": event.Token})
	case domain.EventFinal:
		return json.Marshal(event.Answer)
	default:
		return json.Marshal(map[string]string{"code": event.Code, "msg": event.Msg})
	}
}
