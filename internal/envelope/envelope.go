// Package envelope normalizes response bodies of the monitoring and feedback
// endpoints.
//
// The endpoints sit behind an API Gateway Lambda proxy integration, so a
// response is either the payload object itself or a proxy response whose
// "body" field holds the payload as a JSON-encoded string.
package envelope

import (
	"bytes"

	json "github.com/goccy/go-json"

	"github.com/openlearnnitj/openlearn-dashboard/internal/dasherr"
	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
)

// Unwrap returns the payload object carried by raw.
func Unwrap(raw []byte) ([]byte, error) {
	top, err := object(raw)
	if err != nil {
		return nil, err
	}

	body, ok := top["body"]
	if !ok || !isString(body) {
		return raw, nil
	}

	var inner string
	if err := json.Unmarshal(body, &inner); err != nil {
		return nil, dasherr.New(dasherr.ErrDecode, err, "invalid body string")
	}

	payload := []byte(inner)
	if _, err := object(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Decode converts a response body of the monitoring endpoint into a MetricsSnapshot.
// Absent fields are left invalid.
func Decode(raw []byte) (models.MetricsSnapshot, error) {
	payload, err := Unwrap(raw)
	if err != nil {
		return models.MetricsSnapshot{}, err
	}

	var resp models.MetricsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return models.MetricsSnapshot{}, dasherr.New(dasherr.ErrDecode, err, "unexpected metrics shape")
	}
	return resp.Snapshot(), nil
}

// DecodeSentiment converts a response body of the feedback summary endpoint into a Sentiment.
// Absent counts are zero.
func DecodeSentiment(raw []byte) (models.Sentiment, error) {
	payload, err := Unwrap(raw)
	if err != nil {
		return models.Sentiment{}, err
	}

	var resp models.SentimentResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return models.Sentiment{}, dasherr.New(dasherr.ErrDecode, err, "unexpected sentiment shape")
	}
	return resp.Sentiment(), nil
}

func object(data []byte) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, dasherr.New(dasherr.ErrDecode, err, "response is not a JSON object")
	}
	// "null" decodes into a nil map without error.
	if m == nil {
		return nil, dasherr.New(dasherr.ErrDecode, nil, "response is not a JSON object")
	}
	return m, nil
}

func isString(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '"'
}
