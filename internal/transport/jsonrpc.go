package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// JSON-RPC 2.0 error codes.
const (
	ErrParseCode      = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
)

// Message is any JSON-RPC 2.0 message: a request, a notification or a
// response sent back by the client.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

func (m Message) valid() bool {
	if m.JSONRPC != "2.0" {
		return false
	}
	if m.Method != "" {
		return true
	}
	return m.ID != nil && (m.Result != nil || m.Error != nil)
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// ParseMessages parses a single message or a batch. The returned error carries
// the JSON-RPC code to answer with.
func ParseMessages(body []byte) ([]Message, *Error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &Error{Code: ErrInvalidReq, Message: "empty request body"}
	}

	var msgs []Message
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, parseError(trimmed, err)
		}
		if len(msgs) == 0 {
			return nil, &Error{Code: ErrInvalidReq, Message: "empty batch"}
		}
	} else {
		var msg Message
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return nil, parseError(trimmed, err)
		}
		msgs = []Message{msg}
	}

	for _, msg := range msgs {
		if !msg.valid() {
			return nil, &Error{Code: ErrInvalidReq, Message: "invalid request: not a JSON-RPC 2.0 message"}
		}
	}
	return msgs, nil
}

func parseError(body []byte, err error) *Error {
	if json.Valid(body) {
		return &Error{Code: ErrInvalidReq, Message: "invalid request: " + err.Error()}
	}
	return &Error{Code: ErrParseCode, Message: "parse error: " + err.Error()}
}

// WriteError writes a JSON-RPC error response.
func WriteError(w http.ResponseWriter, id any, code int, message string, data any) {
	writeJSON(w, http.StatusOK, Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
