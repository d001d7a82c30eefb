package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEnvelope is returned when a response body is not an envelope.
var ErrMalformedEnvelope = errors.New("malformed response envelope")

// Envelope is the {"success":..,"data":..} wrapper used by every action.
type Envelope struct {
	Success FlexBool        `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RemoteError is a failed envelope. Data may be a plain message or an
// object with code and message.
type RemoteError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return "backend error: " + e.Message
	}
	return fmt.Sprintf("backend error %s: %s", e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error { return codeError(e.Code) }

// DecodeEnvelope unwraps body into out. A failed envelope yields a
// *RemoteError. out may be nil when the payload is not needed and is left
// at its zero value when the payload is not an object.
func DecodeEnvelope(body []byte, out any) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if !env.Success {
		return decodeRemoteError(env.Data)
	}
	// Payloads are objects; [] and false stand for an empty payload.
	if out == nil || firstByte(env.Data) != '{' {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return nil
}

func decodeRemoteError(data json.RawMessage) error {
	var msg string
	if err := json.Unmarshal(data, &msg); err == nil {
		return &RemoteError{Message: orDefault(msg, "request failed")}
	}
	var obj struct {
		Code    FlexString `json:"code"`
		Message FlexString `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return &RemoteError{Code: string(obj.Code), Message: orDefault(string(obj.Message), "request failed")}
	}
	return &RemoteError{Message: "request failed"}
}

// Success wraps data in a successful envelope.
func Success(data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Success: true, Data: raw})
}

// Failure wraps err in a failed envelope and returns its HTTP status.
func Failure(err error) ([]byte, int) {
	code, status := ErrorCode(err)
	raw, _ := json.Marshal(RemoteError{Code: code, Message: err.Error()})
	body, _ := json.Marshal(Envelope{Success: false, Data: raw})
	return body, status
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
