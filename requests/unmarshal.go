package requests

import (
	"encoding/json"
	"strconv"
)

// EchoRequest is an echo call with defaults applied
type EchoRequest struct {
	Text   string
	Delete bool
}

// UnmarshalEchoRequest decodes an optional JSON body. An empty body yields
// the defaults: no text and no delete.
func UnmarshalEchoRequest(data []byte) (*EchoRequest, error) {
	var dto EchoRequestDTO
	if len(data) > 0 {
		if err := json.Unmarshal(data, &dto); err != nil {
			return nil, err
		}
	}
	return &EchoRequest{
		Text:   valueOrDefault(dto.Text, ""),
		Delete: valueOrDefault(dto.Delete, false),
	}, nil
}

// ApplyQuery overrides fields with the text and delete query parameters
// when they are present
func (r *EchoRequest) ApplyQuery(text string, hasText bool, del string, hasDel bool) error {
	if hasText {
		r.Text = text
	}
	if hasDel {
		if del == "" {
			r.Delete = true
			return nil
		}
		b, err := strconv.ParseBool(del)
		if err != nil {
			return err
		}
		r.Delete = b
	}
	return nil
}

func valueOrDefault[T any](ptr *T, defaultVal T) T {
	if ptr != nil {
		return *ptr
	}
	return defaultVal
}
