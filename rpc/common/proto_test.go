package common

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/versedb/lib/store"
)

func TestResponseError(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		code store.RetCode
		ok   bool
	}{
		{"Success", NewAddResponse(nil), store.RetCSuccess, true},
		{"TypedError", NewAddResponse(store.NewError(store.RetCStoreClosed, "closed")), store.RetCStoreClosed, false},
		{"PlainError", NewRemoveResponse(errors.New("io")), store.RetCInternalError, false},
		{"EmptyMessage", NewRemoveResponse(errors.New("")), store.RetCInternalError, false},
		{"EmptyStoreError", NewFlushResponse(store.NewError(store.RetCInvalidOperation, "")), store.RetCInvalidOperation, false},
		{"CodeOnly", &Message{MsgType: MsgTAdd, Code: store.RetCStoreClosed}, store.RetCStoreClosed, false},
		{"ErrorType", &Message{MsgType: MsgTError}, store.RetCInternalError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Error()
			if tt.ok {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if !store.IsCode(err, tt.code) {
				t.Fatalf("Expected code %s, got %v", tt.code, err)
			}
			var storeErr *store.Error
			if errors.As(err, &storeErr) && storeErr.Msg == "" {
				t.Errorf("Errors must carry a message")
			}
		})
	}
}

func TestFrameLimit(t *testing.T) {
	if got := (ServerTransportConfig{}).FrameLimit(); got != DefaultMaxFrameSize {
		t.Errorf("Expected the default limit, got %d", got)
	}
	if got := (ClientTransportConfig{MaxFrameSize: 10}).FrameLimit(); got != 10 {
		t.Errorf("Expected 10, got %d", got)
	}
	if got := frameLimit(int(^uint(0) >> 1)); uint64(got) > 1<<32-1 {
		t.Errorf("The limit must fit the 4 byte length field, got %d", got)
	}
}
