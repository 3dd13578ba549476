package server

import (
	"encoding/json"

	"github.com/ValentinKolb/propdb/lib/db"
	"github.com/ValentinKolb/propdb/rpc/common"
)

// NewRegistryServerAdapter creates an adapter for operations on the whole registry.
func NewRegistryServerAdapter(manager *db.DatabaseManager) IRPCServerAdapter {
	return &registryServerAdapter{manager: manager}
}

type registryServerAdapter struct {
	manager *db.DatabaseManager
}

func (adapter *registryServerAdapter) Handle(_ string, req *common.Message) *common.Message {
	if adapter.manager == nil {
		return common.NewErrorResponse("handler: database manager is nil")
	}

	switch req.MsgType {
	case common.MsgTRegSaveAll:
		live := adapter.manager.Len()
		return common.NewSaveAllResponse(uint64(live), adapter.manager.SaveAllDatabases())
	case common.MsgTRegList:
		infos, err := json.Marshal(adapter.manager.Infos())
		return common.NewListResponse(infos, err)
	default:
		return unsupported("RegistryAdapter", req.MsgType)
	}
}
