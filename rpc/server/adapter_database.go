package server

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/propdb/lib/db"
	"github.com/ValentinKolb/propdb/lib/host"
	"github.com/ValentinKolb/propdb/lib/store"
	"github.com/ValentinKolb/propdb/lib/value"
	"github.com/ValentinKolb/propdb/rpc/common"
)

// NewDatabaseServerAdapter creates an adapter that maps database operations
// onto the databases of manager.
func NewDatabaseServerAdapter(manager *db.DatabaseManager) IRPCServerAdapter {
	return &databaseServerAdapter{manager: manager}
}

type databaseServerAdapter struct {
	manager *db.DatabaseManager
}

func (adapter *databaseServerAdapter) Handle(database string, req *common.Message) *common.Message {
	// Check for nil manager
	if adapter.manager == nil {
		return common.NewErrorResponse("handler: database manager is nil")
	}

	// Print and evict do not go through a loaded instance
	switch req.MsgType {
	case common.MsgTDBPrint:
		sink := host.NewRecordingSink()
		adapter.manager.PrintElements(database, req.Key, sink)
		return common.NewPrintResponse([]byte(strings.Join(sink.Texts(), "\n")), nil)
	case common.MsgTDBEvict:
		ok, err := adapter.manager.Evict(database)
		return common.NewEvictResponse(ok, err)
	}

	d, err := adapter.manager.GetDatabase(database)
	if err != nil {
		return common.NewFailedResponse(req.MsgType, err)
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTDBGet:
		v, ok := d.Get(req.Key)
		text, err := v.MarshalJSON()
		return common.NewGetResponse(text, ok, err)
	case common.MsgTDBGetAll:
		doc, err := value.Encode(d.Entries())
		return common.NewGetAllResponse([]byte(doc), err)
	case common.MsgTDBSize:
		return common.NewSizeResponse(uint64(d.Size()), nil)
	case common.MsgTDBSet:
		v, err := value.ParseValue(string(req.Value))
		if err == nil {
			d.Set(req.Key, v)
		}
		return common.NewSetResponse(err)
	case common.MsgTDBDelete:
		return common.NewDeleteResponse(d.Delete(req.Key), nil)
	case common.MsgTDBClear:
		removed := d.Size()
		d.Clear()
		return common.NewClearResponse(uint64(removed), nil)
	case common.MsgTDBFlush:
		return common.NewFlushResponse(d.Flush())
	default:
		return unsupported("DatabaseAdapter", req.MsgType)
	}
}

func unsupported(adapter string, t common.MessageType) *common.Message {
	resp := common.NewErrorResponse(fmt.Sprintf("RPC %s - Unsupported message type: %s", adapter, t))
	resp.Code = uint64(store.RetCUnsupportedOperation)
	return resp
}
