// Package shimtest provides an in-memory ledger implementing the
// shim.Transport interface, for unit testing contract code without a
// peer. Use it instead of a real transport in calls to
// shim.NewChaincodeStub.
package shimtest

import (
	"container/list"
	"strconv"
	"strings"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"ledgershim/log"
	"ledgershim/shim"
)

// unspecified range bounds arrive as the shim's substitute key
const unspecifiedKey = shim.UnspecifiedKey

func shorttxid(txid string) string {
	if len(txid) < 8 {
		return txid
	}
	return txid[0:8]
}

// InvokeHandler services a chaincode-to-chaincode call registered in
// MockLedger.Invokables.
type InvokeHandler func(args [][]byte) peer.Response

// MockLedger keeps world state in memory and answers the transport
// operations a stub performs. Range and history queries are chunked in
// pages of PageSize results so continuation-token paging is exercised
// the same way a real peer would; PageSize <= 0 returns everything in
// the first chunk.
//
// MockLedger does not model per-transaction read/write sets: writes are
// applied immediately. Rich queries are not implemented, the mock has no
// query engine.
type MockLedger struct {
	// State holds the name-value pairs
	State map[string][]byte

	// Keys stores State keys in lexical order
	Keys *list.List

	// History holds the modification records appended by PutState and
	// DelState, per key
	History map[string][]*queryresult.KeyModification

	// Invokables maps a composite chaincode name ("name" or
	// "name/channel") to the handler servicing the call
	Invokables map[string]InvokeHandler

	// Invocations records each composite name InvokeChaincode was asked
	// to call, in order
	Invocations []string

	// PageSize caps the number of results per query chunk
	PageSize int

	openQueries map[string][]*peer.QueryResultBytes
	nextQueryID int
}

// NewMockLedger returns an empty ledger with paging disabled.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		State:       map[string][]byte{},
		Keys:        list.New(),
		History:     map[string][]*queryresult.KeyModification{},
		Invokables:  map[string]InvokeHandler{},
		openQueries: map[string][]*peer.QueryResultBytes{},
	}
}

// NewStub mints a stub for one transaction bound to this ledger.
func (ml *MockLedger) NewStub(channelID, txID string, args [][]byte, signedProposal *peer.SignedProposal) (*shim.ChaincodeStub, error) {
	return shim.NewChaincodeStub(ml, channelID, txID, args, signedProposal)
}

// GetState implements shim.Transport.
func (ml *MockLedger) GetState(channelID, txID, key string) ([]byte, error) {
	return ml.State[key], nil
}

// PutState implements shim.Transport.
func (ml *MockLedger) PutState(channelID, txID, key string, value []byte) error {
	ml.State[key] = value
	ml.insertKey(key)
	ml.appendHistory(key, txID, value, false)
	return nil
}

// DelState implements shim.Transport.
func (ml *MockLedger) DelState(channelID, txID, key string) error {
	delete(ml.State, key)
	for elem := ml.Keys.Front(); elem != nil; elem = elem.Next() {
		if elem.Value.(string) == key {
			ml.Keys.Remove(elem)
			break
		}
	}
	ml.appendHistory(key, txID, nil, true)
	return nil
}

// insertKey keeps the Keys list sorted, ignoring duplicates.
func (ml *MockLedger) insertKey(key string) {
	for elem := ml.Keys.Front(); elem != nil; elem = elem.Next() {
		comp := strings.Compare(key, elem.Value.(string))
		if comp == 0 {
			return
		}
		if comp < 0 {
			ml.Keys.InsertBefore(key, elem)
			return
		}
	}
	ml.Keys.PushBack(key)
}

func (ml *MockLedger) appendHistory(key, txID string, value []byte, isDelete bool) {
	ml.History[key] = append(ml.History[key], &queryresult.KeyModification{
		TxId:      txID,
		Value:     value,
		Timestamp: ptypes.TimestampNow(),
		IsDelete:  isDelete,
	})
}

// GetStateByRange implements shim.Transport. Bounds follow the store
// contract: startKey inclusive, endKey exclusive, the unspecified
// sentinel opens the bound.
func (ml *MockLedger) GetStateByRange(channelID, txID, startKey, endKey string) (*peer.QueryResponse, error) {
	var results []*peer.QueryResultBytes
	for elem := ml.Keys.Front(); elem != nil; elem = elem.Next() {
		key := elem.Value.(string)
		if startKey != unspecifiedKey && strings.Compare(key, startKey) < 0 {
			continue
		}
		if endKey != unspecifiedKey && strings.Compare(key, endKey) >= 0 {
			break
		}
		resultBytes, err := proto.Marshal(&queryresult.KV{
			Namespace: channelID,
			Key:       key,
			Value:     ml.State[key],
		})
		if err != nil {
			return nil, err
		}
		results = append(results, &peer.QueryResultBytes{ResultBytes: resultBytes})
	}
	return ml.firstChunk(results), nil
}

// GetQueryResult implements shim.Transport. Not implemented: the mock
// has no rich query engine.
func (ml *MockLedger) GetQueryResult(channelID, txID, query string) (*peer.QueryResponse, error) {
	return nil, errors.New("rich queries are not supported by MockLedger")
}

// GetHistoryForKey implements shim.Transport.
func (ml *MockLedger) GetHistoryForKey(channelID, txID, key string) (*peer.QueryResponse, error) {
	var results []*peer.QueryResultBytes
	for _, mod := range ml.History[key] {
		resultBytes, err := proto.Marshal(mod)
		if err != nil {
			return nil, err
		}
		results = append(results, &peer.QueryResultBytes{ResultBytes: resultBytes})
	}
	return ml.firstChunk(results), nil
}

// firstChunk returns the first page of results and parks the remainder
// under a fresh cursor id when paging is on.
func (ml *MockLedger) firstChunk(results []*peer.QueryResultBytes) *peer.QueryResponse {
	if ml.PageSize <= 0 || len(results) <= ml.PageSize {
		return &peer.QueryResponse{Results: results}
	}
	ml.nextQueryID++
	id := "q" + strconv.Itoa(ml.nextQueryID)
	ml.openQueries[id] = results[ml.PageSize:]
	return &peer.QueryResponse{
		Results: results[:ml.PageSize],
		HasMore: true,
		Id:      id,
	}
}

// QueryStateNext implements shim.Transport.
func (ml *MockLedger) QueryStateNext(channelID, txID, queryID string) (*peer.QueryResponse, error) {
	remaining, ok := ml.openQueries[queryID]
	if !ok {
		return nil, errors.Errorf("no open query with id %s", queryID)
	}
	if len(remaining) <= ml.PageSize {
		delete(ml.openQueries, queryID)
		return &peer.QueryResponse{Results: remaining, Id: queryID}, nil
	}
	ml.openQueries[queryID] = remaining[ml.PageSize:]
	return &peer.QueryResponse{
		Results: remaining[:ml.PageSize],
		HasMore: true,
		Id:      queryID,
	}, nil
}

// QueryStateClose implements shim.Transport.
func (ml *MockLedger) QueryStateClose(channelID, txID, queryID string) error {
	delete(ml.openQueries, queryID)
	return nil
}

// OpenQueryCount reports how many cursors have not been drained or
// closed. Tests use it to assert scoped iterator release.
func (ml *MockLedger) OpenQueryCount() int {
	return len(ml.openQueries)
}

// InvokeChaincode implements shim.Transport, dispatching to the
// registered handler for the composite name.
func (ml *MockLedger) InvokeChaincode(channelID, txID, chaincodeName string, args [][]byte) peer.Response {
	ml.Invocations = append(ml.Invocations, chaincodeName)
	handler, ok := ml.Invokables[chaincodeName]
	if !ok {
		log.Errorf("[%s] no invokable chaincode registered as %s", shorttxid(txID), chaincodeName)
		return shim.Error("could not find peer chaincode with name '" + chaincodeName + "'")
	}
	return handler(args)
}
