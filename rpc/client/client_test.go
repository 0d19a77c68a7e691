package client

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/ValentinKolb/versedb/rpc/serializer"
	"github.com/stretchr/testify/require"
)

// fakeTransport answers every request with a fixed response
type fakeTransport struct {
	ser      serializer.IRPCSerializer
	respond  func(req common.Message) *common.Message
	sendErr  error
	requests []common.Message
	closed   bool
}

func (f *fakeTransport) Connect(common.ClientConfig) error { return nil }

func (f *fakeTransport) Send(req []byte) ([]byte, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	var msg common.Message
	if err := f.ser.Deserialize(req, &msg); err != nil {
		return nil, err
	}
	f.requests = append(f.requests, msg)
	return f.ser.Serialize(*f.respond(msg))
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func newFakeStore(t *testing.T, respond func(req common.Message) *common.Message) (IRemoteStore, *fakeTransport) {
	t.Helper()
	ser := serializer.NewBinarySerializer()
	ft := &fakeTransport{ser: ser, respond: respond}
	s, err := NewRPCStore(common.ClientConfig{}, ft, ser)
	require.NoError(t, err)
	return s, ft
}

func TestRequestsCarryArguments(t *testing.T) {
	s, ft := newFakeStore(t, func(req common.Message) *common.Message {
		switch req.MsgType {
		case common.MsgTSelectRange:
			return common.NewSelectRangeResponse([]store.Pair{{Key: []byte("a"), Value: []byte("1")}}, nil)
		default:
			return &common.Message{MsgType: req.MsgType}
		}
	})

	require.NoError(t, s.Add([]byte("k"), []byte("v")))
	pairs, err := s.SelectRange([]byte("a"), []byte("b"))
	require.NoError(t, err)
	require.Equal(t, []store.Pair{{Key: []byte("a"), Value: []byte("1")}}, pairs)

	require.Len(t, ft.requests, 2)
	require.Equal(t, common.MsgTAdd, ft.requests[0].MsgType)
	require.Equal(t, []byte("k"), ft.requests[0].Key)
	require.Equal(t, []byte("v"), ft.requests[0].Value)
	require.Equal(t, []byte("a"), ft.requests[1].Key)
	require.Equal(t, []byte("b"), ft.requests[1].End)
}

func TestSelectResults(t *testing.T) {
	found := true
	s, _ := newFakeStore(t, func(req common.Message) *common.Message {
		if found {
			// an empty value of a present key
			return common.NewSelectResponse(nil, true, nil)
		}
		return common.NewSelectResponse(nil, false, nil)
	})

	value, loaded, err := s.Select([]byte("k"))
	require.NoError(t, err)
	require.True(t, loaded)
	require.NotNil(t, value)
	require.Empty(t, value)

	found = false
	value, loaded, err = s.Select([]byte("k"))
	require.NoError(t, err)
	require.False(t, loaded)
	require.Nil(t, value)
}

func TestEmptyRangeIsNotNil(t *testing.T) {
	s, _ := newFakeStore(t, func(req common.Message) *common.Message {
		return common.NewRemoveRangeResponse(nil, nil)
	})

	pairs, err := s.RemoveRange([]byte("a"), []byte("b"))
	require.NoError(t, err)
	require.NotNil(t, pairs)
	require.Empty(t, pairs)
}

func TestRemoteErrorsAreTyped(t *testing.T) {
	s, _ := newFakeStore(t, func(req common.Message) *common.Message {
		return common.NewAddResponse(store.NewError(store.RetCStoreClosed, "store is closed"))
	})

	err := s.Add([]byte("k"), []byte("v"))
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, store.RetCStoreClosed, storeErr.Code)
	require.Equal(t, "store is closed", storeErr.Msg)
}

func TestErrorResponse(t *testing.T) {
	s, _ := newFakeStore(t, func(req common.Message) *common.Message {
		return common.NewErrorResponse(store.RetCInvalidOperation, "bad request")
	})

	err := s.Flush()
	require.True(t, store.IsCode(err, store.RetCInvalidOperation), "got %v", err)
}

func TestUnexpectedResponse(t *testing.T) {
	s, _ := newFakeStore(t, func(req common.Message) *common.Message {
		return common.NewEchoResponse("Hello, x!")
	})

	err := s.Remove([]byte("k"))
	require.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestTransportErrorsAreWrapped(t *testing.T) {
	s, ft := newFakeStore(t, nil)
	ft.sendErr = errors.New("connection refused")

	_, err := s.Echo("x")
	require.ErrorIs(t, err, ft.sendErr)
	var storeErr *store.Error
	require.False(t, errors.As(err, &storeErr))
}

func TestCloseOnlyClosesTheTransport(t *testing.T) {
	s, ft := newFakeStore(t, func(req common.Message) *common.Message {
		t.Errorf("Close must not send %s", req.MsgType)
		return &common.Message{MsgType: req.MsgType}
	})

	require.NoError(t, s.Close())
	require.True(t, ft.closed)
	require.Empty(t, ft.requests)
}
