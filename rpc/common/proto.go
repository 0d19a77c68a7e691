package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/versedb/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key   []byte `json:"key,omitempty"`   // Used for: Add, Select, Remove (key) and SelectRange, RemoveRange (range start)
	End   []byte `json:"end,omitempty"`   // Used for: SelectRange, RemoveRange (exclusive range end)
	Value []byte `json:"value,omitempty"` // Used for: Add (request), Select (response)
	Text  string `json:"text,omitempty"`  // Used for: Echo

	// Response only fields
	Pairs []store.Pair  `json:"pairs,omitempty"` // Used for: SelectRange, RemoveRange responses
	Ok    bool          `json:"ok,omitempty"`    // Used for: Select responses (key was found)
	Err   string        `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message
	Code  store.RetCode `json:"code,omitempty"`  // Return code of a failed operation
}

// Error returns the error carried by a response, or nil if the operation succeeded.
// Failed operations are returned as *store.Error with the code reported by the server.
func (m *Message) Error() error {
	if m.Err == "" && m.Code == store.RetCSuccess && m.MsgType != MsgTError {
		return nil
	}
	code := m.Code
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	msg := m.Err
	if msg == "" {
		msg = unknownErrorMsg
	}
	return store.NewError(code, msg)
}

// unknownErrorMsg is sent for errors without a message, an empty Err would read as success
const unknownErrorMsg = "operation failed without an error message"

// setErr fills the error fields of a response
func (m *Message) setErr(err error) *Message {
	if err == nil {
		return m
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		m.Err = storeErr.Msg
		m.Code = storeErr.Code
	} else {
		m.Err = err.Error()
		m.Code = store.RetCInternalError
	}
	if m.Err == "" {
		m.Err = unknownErrorMsg
	}
	if m.Code == store.RetCSuccess {
		m.Code = store.RetCInternalError
	}
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewAddRequest creates a new Add request
func NewAddRequest(key, value []byte) *Message {
	return &Message{
		MsgType: MsgTAdd,
		Key:     key,
		Value:   value,
	}
}

// NewAddResponse creates a new Add response
func NewAddResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTAdd,
	}
	return msg.setErr(err)
}

// NewSelectRequest creates a new Select request
func NewSelectRequest(key []byte) *Message {
	return &Message{
		MsgType: MsgTSelect,
		Key:     key,
	}
}

// NewSelectResponse creates a new Select response
func NewSelectResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTSelect,
		Ok:      ok,
		Value:   value,
	}
	return msg.setErr(err)
}

// NewRemoveRequest creates a new Remove request
func NewRemoveRequest(key []byte) *Message {
	return &Message{
		MsgType: MsgTRemove,
		Key:     key,
	}
}

// NewRemoveResponse creates a new Remove response
func NewRemoveResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTRemove,
	}
	return msg.setErr(err)
}

// NewSelectRangeRequest creates a new SelectRange request for [start, end)
func NewSelectRangeRequest(start, end []byte) *Message {
	return &Message{
		MsgType: MsgTSelectRange,
		Key:     start,
		End:     end,
	}
}

// NewSelectRangeResponse creates a new SelectRange response
func NewSelectRangeResponse(pairs []store.Pair, err error) *Message {
	msg := &Message{
		MsgType: MsgTSelectRange,
		Pairs:   pairs,
	}
	return msg.setErr(err)
}

// NewRemoveRangeRequest creates a new RemoveRange request for [start, end)
func NewRemoveRangeRequest(start, end []byte) *Message {
	return &Message{
		MsgType: MsgTRemoveRange,
		Key:     start,
		End:     end,
	}
}

// NewRemoveRangeResponse creates a new RemoveRange response
func NewRemoveRangeResponse(pairs []store.Pair, err error) *Message {
	msg := &Message{
		MsgType: MsgTRemoveRange,
		Pairs:   pairs,
	}
	return msg.setErr(err)
}

// NewFlushRequest creates a new Flush request
func NewFlushRequest() *Message {
	return &Message{
		MsgType: MsgTFlush,
	}
}

// NewFlushResponse creates a new Flush response
func NewFlushResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTFlush,
	}
	return msg.setErr(err)
}

// NewEchoRequest creates a new Echo request
func NewEchoRequest(text string) *Message {
	return &Message{
		MsgType: MsgTEcho,
		Text:    text,
	}
}

// NewEchoResponse creates a new Echo response
func NewEchoResponse(text string) *Message {
	return &Message{
		MsgType: MsgTEcho,
		Text:    text,
	}
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code store.RetCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
		Code:    code,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTAdd:
		return "add"
	case MsgTSelect:
		return "select"
	case MsgTRemove:
		return "remove"
	case MsgTSelectRange:
		return "selectRange"
	case MsgTRemoveRange:
		return "removeRange"
	case MsgTFlush:
		return "flush"
	case MsgTEcho:
		return "echo"
	case MsgTError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "add":
		*t = MsgTAdd
	case "select":
		*t = MsgTSelect
	case "remove":
		*t = MsgTRemove
	case "selectRange":
		*t = MsgTSelectRange
	case "removeRange":
		*t = MsgTRemoveRange
	case "flush":
		*t = MsgTFlush
	case "echo":
		*t = MsgTEcho
	case "error":
		*t = MsgTError
	case "unknown":
		*t = MsgTUnknown
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTError               // Indicates an error occurred (e.g. the request could not be decoded)

	// IStore operations

	MsgTAdd         // Insert or overwrite a key-value pair
	MsgTSelect      // Get a value by key
	MsgTRemove      // Remove a key-value pair
	MsgTSelectRange // Get all pairs in [start, end)
	MsgTRemoveRange // Remove and return all pairs in [start, end)
	MsgTFlush       // Make all previous writes durable

	// Liveness

	MsgTEcho // Returns a greeting, independent of the store
)

// MessageTypes lists all request types handled by the server.
var MessageTypes = []MessageType{
	MsgTAdd, MsgTSelect, MsgTRemove, MsgTSelectRange, MsgTRemoveRange, MsgTFlush, MsgTEcho,
}
