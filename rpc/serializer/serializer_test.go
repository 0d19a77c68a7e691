package serializer

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/ValentinKolb/versedb/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
	"CBOR":   NewCBORSerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTFlush},

		// Add request
		*common.NewAddRequest([]byte("test-key"), []byte("test-value")),

		// Add request with binary key and value
		*common.NewAddRequest([]byte{0x00, 0xff, 0x10}, []byte{0x00, 0x00}),

		// Select response
		*common.NewSelectResponse([]byte("test-value"), true, nil),

		// Range request
		*common.NewSelectRangeRequest([]byte("a"), []byte("z")),

		// Range response, including an empty key and an empty value
		*common.NewRemoveRangeResponse([]store.Pair{
			{Key: []byte{}, Value: []byte("first")},
			{Key: []byte("b"), Value: []byte{}},
			{Key: []byte("c"), Value: bytes.Repeat([]byte{0xab}, 300)},
		}, nil),

		// Echo
		*common.NewEchoRequest("world"),
		*common.NewEchoResponse("Hello, world!"),

		// Failed response
		*common.NewAddResponse(store.NewError(store.RetCStoreClosed, "store is closed")),

		// Error response
		*common.NewErrorResponse(store.RetCInvalidOperation, "test error message"),
	}
}

// equalMessages compares two messages, nil and empty byte slices are equal
func equalMessages(a, b common.Message) bool {
	if a.MsgType != b.MsgType || a.Text != b.Text || a.Ok != b.Ok || a.Err != b.Err || a.Code != b.Code {
		return false
	}
	if !bytes.Equal(a.Key, b.Key) || !bytes.Equal(a.End, b.End) || !bytes.Equal(a.Value, b.Value) {
		return false
	}
	if len(a.Pairs) != len(b.Pairs) {
		return false
	}
	for i := range a.Pairs {
		if !bytes.Equal(a.Pairs[i].Key, b.Pairs[i].Key) || !bytes.Equal(a.Pairs[i].Value, b.Pairs[i].Value) {
			return false
		}
	}
	return true
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !equalMessages(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestDeserializeResetsMessage checks that fields of a reused message do not leak into the next one
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(*common.NewFlushRequest())
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			msg := *common.NewSelectResponse([]byte("stale"), true, nil)
			if err := serializer.Deserialize(data, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if msg.Ok || msg.Value != nil || msg.MsgType != common.MsgTFlush {
				t.Errorf("Stale fields after deserialize: %+v", msg)
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	types := append([]common.MessageType{common.MsgTUnknown, common.MsgTError}, common.MessageTypes...)

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for _, msgType := range types {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Empty key and empty value",
			msg: common.Message{
				MsgType: common.MsgTAdd,
				Key:     []byte{},
				Value:   []byte{},
			},
		},
		{
			name: "Select response for an empty value",
			msg: common.Message{
				MsgType: common.MsgTSelect,
				Ok:      true,
				Value:   []byte{},
			},
		},
		{
			name: "Empty range response",
			msg: common.Message{
				MsgType: common.MsgTSelectRange,
				Pairs:   []store.Pair{},
			},
		},
		{
			name: "Error with code",
			msg: common.Message{
				MsgType: common.MsgTRemove,
				Err:     "boom",
				Code:    store.RetCInternalError,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if !equalMessages(tc.msg, result) {
				t.Errorf("Mismatch: expected %+v, got %+v", tc.msg, result)
			}

			// The binary format keeps the difference between absent and empty
			if (tc.msg.Key == nil) != (result.Key == nil) {
				t.Errorf("Key nil/non-nil mismatch: expected %v, got %v", tc.msg.Key, result.Key)
			}
			if (tc.msg.Value == nil) != (result.Value == nil) {
				t.Errorf("Value nil/non-nil mismatch: expected %v, got %v", tc.msg.Value, result.Value)
			}
			if (tc.msg.Pairs == nil) != (result.Pairs == nil) {
				t.Errorf("Pairs nil/non-nil mismatch: expected %v, got %v", tc.msg.Pairs, result.Pairs)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{2, hasKey, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{2, hasValue, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Huge pair count",
			data:        []byte{4, hasPairs, 0xff, 0xff, 0xff, 0xff},
			expectError: true,
		},
		{
			name:        "Missing code byte",
			data:        []byte{2, hasCode},
			expectError: true,
		},
		{
			name:        "Trailing bytes",
			data:        []byte{1, 0, 42},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

// TestNew tests the lookup of serializers by name
func TestNew(t *testing.T) {
	for _, name := range Names {
		if _, err := New(name); err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
		}
	}
	if _, err := New("xml"); err == nil {
		t.Errorf("Expected error for unknown serializer")
	}
}
