package server

import (
	"fmt"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/ValentinKolb/versedb/rpc/common"
)

// NewIStoreServerAdapter returns the adapter that maps every request onto exactly one
// call of the store. Echo requests are answered without touching the store.
func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	// Echo does not need a store
	if req.MsgType == common.MsgTEcho {
		return common.NewEchoResponse(greeting(req.Text))
	}

	// Check for nil store
	if s == nil {
		return common.NewErrorResponse(store.RetCInternalError, "handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTAdd:
		err := s.Add(req.Key, req.Value)
		return common.NewAddResponse(err)
	case common.MsgTSelect:
		val, ok, err := s.Select(req.Key)
		return common.NewSelectResponse(val, ok, err)
	case common.MsgTRemove:
		err := s.Remove(req.Key)
		return common.NewRemoveResponse(err)
	case common.MsgTSelectRange:
		pairs, err := s.SelectRange(req.Key, req.End)
		return common.NewSelectRangeResponse(pairs, err)
	case common.MsgTRemoveRange:
		pairs, err := s.RemoveRange(req.Key, req.End)
		return common.NewRemoveRangeResponse(pairs, err)
	case common.MsgTFlush:
		err := s.Flush()
		return common.NewFlushResponse(err)
	default:
		return common.NewErrorResponse(
			store.RetCInvalidOperation,
			fmt.Sprintf("unsupported message type: %s", req.MsgType),
		)
	}
}

// greeting is the echo answer for text
func greeting(text string) string {
	return "Hello, " + text + "!"
}
