package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/ValentinKolb/versedb/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
//
//	1 byte   message type
//	1 byte   flags of the present fields
//	...      the present fields in flag order
//
// Byte and string fields are encoded as 4 byte big endian length + data, pairs as
// 4 byte count + key and value per pair, Ok and Code as one byte.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey   byte = 1 << 0
	hasEnd   byte = 1 << 1
	hasValue byte = 1 << 2
	hasText  byte = 1 << 3
	hasPairs byte = 1 << 4
	hasOk    byte = 1 << 5
	hasErr   byte = 1 << 6
	hasCode  byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, 2, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	// Collect flags while appending the fields
	var flags byte = 0

	if msg.Key != nil {
		flags |= hasKey
		result = appendBlob(result, msg.Key)
	}
	if msg.End != nil {
		flags |= hasEnd
		result = appendBlob(result, msg.End)
	}
	if msg.Value != nil {
		flags |= hasValue
		result = appendBlob(result, msg.Value)
	}
	if msg.Text != "" {
		flags |= hasText
		result = appendBlob(result, []byte(msg.Text))
	}
	if msg.Pairs != nil {
		flags |= hasPairs
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Pairs)))
		for _, p := range msg.Pairs {
			result = appendBlob(result, p.Key)
			result = appendBlob(result, p.Value)
		}
	}
	if msg.Ok {
		flags |= hasOk
		result = append(result, 1)
	}
	if msg.Err != "" {
		flags |= hasErr
		result = appendBlob(result, []byte(msg.Err))
	}
	if msg.Code != store.RetCSuccess {
		flags |= hasCode
		result = append(result, byte(msg.Code))
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	r := reader{data: data, pos: 2}
	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := data[1]

	var err error
	if flags&hasKey != 0 {
		if msg.Key, err = r.blob("key"); err != nil {
			return err
		}
	}
	if flags&hasEnd != 0 {
		if msg.End, err = r.blob("end"); err != nil {
			return err
		}
	}
	if flags&hasValue != 0 {
		if msg.Value, err = r.blob("value"); err != nil {
			return err
		}
	}
	if flags&hasText != 0 {
		text, err := r.blob("text")
		if err != nil {
			return err
		}
		msg.Text = string(text)
	}
	if flags&hasPairs != 0 {
		if msg.Pairs, err = r.pairs(); err != nil {
			return err
		}
	}
	if flags&hasOk != 0 {
		ok, err := r.readByte("ok flag")
		if err != nil {
			return err
		}
		msg.Ok = ok != 0
	}
	if flags&hasErr != 0 {
		errMsg, err := r.blob("error")
		if err != nil {
			return err
		}
		msg.Err = string(errMsg)
	}
	if flags&hasCode != 0 {
		code, err := r.readByte("code")
		if err != nil {
			return err
		}
		msg.Code = store.RetCode(code)
	}

	if r.pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-r.pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	// Add sizes for fields that require length encoding
	if msg.Key != nil {
		size += 4 + len(msg.Key)
	}
	if msg.End != nil {
		size += 4 + len(msg.End)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Text != "" {
		size += 4 + len(msg.Text)
	}
	if msg.Pairs != nil {
		size += 4 // pair count
		for _, p := range msg.Pairs {
			size += 8 + len(p.Key) + len(p.Value)
		}
	}
	if msg.Ok {
		size += 1
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Code != store.RetCSuccess {
		size += 1
	}

	return size
}

// appendBlob appends a length prefixed byte slice
func appendBlob(dst, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

// reader reads the fields of a serialized message with bounds checks
type reader struct {
	data []byte
	pos  int
}

func (r *reader) readByte(field string) (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readLen(field string) (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s length", field)
	}
	n := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return n, nil
}

// blob reads a length prefixed byte slice. The result is a copy and never nil.
func (r *reader) blob(field string) ([]byte, error) {
	n, err := r.readLen(field)
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(len(r.data)-r.pos) {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

func (r *reader) pairs() ([]store.Pair, error) {
	count, err := r.readLen("pairs")
	if err != nil {
		return nil, err
	}
	// every pair needs at least its two length prefixes
	if uint64(count)*8 > uint64(len(r.data)-r.pos) {
		return nil, fmt.Errorf("data too short for %d pairs", count)
	}
	pairs := make([]store.Pair, count)
	for i := range pairs {
		if pairs[i].Key, err = r.blob("pair key"); err != nil {
			return nil, err
		}
		if pairs[i].Value, err = r.blob("pair value"); err != nil {
			return nil, err
		}
	}
	return pairs, nil
}
