package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/propdb/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message. The database a request
// is meant for is not part of the message, the transport routes by it.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key   string `json:"key,omitempty"`   // Used for: Get, Set, Delete
	Value []byte `json:"value,omitempty"` // Used for: Set (request), Get, GetAll, Print, List (response)
	Count uint64 `json:"count,omitempty"` // Used for: Size, Clear, SaveAll (response)

	// Response only fields
	Ok   bool   `json:"ok,omitempty"`   // Used for: Get, Delete, Evict responses
	Code uint64 `json:"code,omitempty"` // store.RetCode of a failed operation
	Err  string `json:"err,omitempty"`  // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional Adapters
}

// Failure returns the error carried by a response, nil if the operation succeeded.
// The code of the failed operation is kept, so errors.Is(err, store.ErrCorruptData) works
// on the client side as well.
func (m *Message) Failure() error {
	if m.Err == "" && m.MsgType != MsgTError {
		return nil
	}
	code := store.RetCode(m.Code)
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	return store.NewError(code, m.Err)
}

// setErr stores err in the response. *store.Error codes travel in Code.
func (m *Message) setErr(err error) *Message {
	if err == nil {
		return m
	}
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		m.Code = uint64(storeErr.Code)
	} else {
		m.Code = uint64(store.RetCInternalError)
	}
	m.Err = err.Error()
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTDBGet,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response. value is the JSON text of the value.
func NewGetResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTDBGet,
		Ok:      ok,
		Value:   value,
	}
	return msg.setErr(err)
}

// NewGetAllRequest creates a new GetAll request
func NewGetAllRequest() *Message {
	return &Message{
		MsgType: MsgTDBGetAll,
	}
}

// NewGetAllResponse creates a new GetAll response. document is the encoded database content.
func NewGetAllResponse(document []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTDBGetAll,
		Value:   document,
	}
	return msg.setErr(err)
}

// NewSizeRequest creates a new Size request
func NewSizeRequest() *Message {
	return &Message{
		MsgType: MsgTDBSize,
	}
}

// NewSizeResponse creates a new Size response
func NewSizeResponse(size uint64, err error) *Message {
	msg := &Message{
		MsgType: MsgTDBSize,
		Count:   size,
	}
	return msg.setErr(err)
}

// NewSetRequest creates a new Set request. value is the JSON text of the value.
func NewSetRequest(key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTDBSet,
		Key:     key,
		Value:   value,
	}
}

// NewSetResponse creates a new Set response
func NewSetResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTDBSet,
	}
	return msg.setErr(err)
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Message {
	return &Message{
		MsgType: MsgTDBDelete,
		Key:     key,
	}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTDBDelete,
		Ok:      ok,
	}
	return msg.setErr(err)
}

// NewClearRequest creates a new Clear request
func NewClearRequest() *Message {
	return &Message{
		MsgType: MsgTDBClear,
	}
}

// NewClearResponse creates a new Clear response. removed is the number of removed entries.
func NewClearResponse(removed uint64, err error) *Message {
	msg := &Message{
		MsgType: MsgTDBClear,
		Count:   removed,
	}
	return msg.setErr(err)
}

// NewFlushRequest creates a new Flush request
func NewFlushRequest() *Message {
	return &Message{
		MsgType: MsgTDBFlush,
	}
}

// NewFlushResponse creates a new Flush response
func NewFlushResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTDBFlush,
	}
	return msg.setErr(err)
}

// NewPrintRequest creates a new Print request. recipient is passed to the message sink.
func NewPrintRequest(recipient string) *Message {
	return &Message{
		MsgType: MsgTDBPrint,
		Key:     recipient,
	}
}

// NewPrintResponse creates a new Print response. dump holds the printed lines.
func NewPrintResponse(dump []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTDBPrint,
		Value:   dump,
	}
	return msg.setErr(err)
}

// NewEvictRequest creates a new Evict request
func NewEvictRequest() *Message {
	return &Message{
		MsgType: MsgTDBEvict,
	}
}

// NewEvictResponse creates a new Evict response
func NewEvictResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTDBEvict,
		Ok:      ok,
	}
	return msg.setErr(err)
}

// NewSaveAllRequest creates a new SaveAll request
func NewSaveAllRequest() *Message {
	return &Message{
		MsgType: MsgTRegSaveAll,
	}
}

// NewSaveAllResponse creates a new SaveAll response. saved is the number of live databases.
func NewSaveAllResponse(saved uint64, err error) *Message {
	msg := &Message{
		MsgType: MsgTRegSaveAll,
		Count:   saved,
	}
	return msg.setErr(err)
}

// NewListRequest creates a new List request
func NewListRequest() *Message {
	return &Message{
		MsgType: MsgTRegList,
	}
}

// NewListResponse creates a new List response. infos is the JSON encoded []db.DatabaseInfo.
func NewListResponse(infos []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTRegList,
		Value:   infos,
	}
	return msg.setErr(err)
}

// NewFailedResponse creates a response of type t that only carries err.
// It is used when a request fails before the operation itself runs.
func NewFailedResponse(t MessageType, err error) *Message {
	msg := &Message{
		MsgType: t,
	}
	return msg.setErr(err)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    uint64(store.RetCInternalError),
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTSuccess:    "success",
	MsgTError:      "error",
	MsgTDBGet:      "get",
	MsgTDBGetAll:   "getAll",
	MsgTDBSize:     "size",
	MsgTDBSet:      "set",
	MsgTDBDelete:   "delete",
	MsgTDBClear:    "clear",
	MsgTDBFlush:    "flush",
	MsgTDBPrint:    "print",
	MsgTDBEvict:    "evict",
	MsgTRegSaveAll: "saveAll",
	MsgTRegList:    "list",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsRegistryOperation reports whether the message addresses the whole registry
// instead of a single database.
func (t MessageType) IsRegistryOperation() bool {
	return t == MsgTRegSaveAll || t == MsgTRegList
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

	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Database operations

	MsgTDBGet    // Get a value by key
	MsgTDBGetAll // Get the whole (ordered) content
	MsgTDBSize   // Number of entries
	MsgTDBSet    // Set a key-value pair
	MsgTDBDelete // Delete a key-value pair
	MsgTDBClear  // Remove all entries
	MsgTDBFlush  // Persist the database
	MsgTDBPrint  // Human readable dump
	MsgTDBEvict  // Flush and remove from the registry

	// Registry operations

	MsgTRegSaveAll // Persist all live databases
	MsgTRegList    // Metadata of all live databases
)
