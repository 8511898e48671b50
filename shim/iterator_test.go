package shim

import (
	"errors"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go/peer"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// fakeTransport scripts transport behaviour for stub and iterator tests.
type fakeTransport struct {
	state map[string][]byte

	rangeResponse   *peer.QueryResponse
	queryResponse   *peer.QueryResponse
	historyResponse *peer.QueryResponse
	nextResponses   []*peer.QueryResponse
	nextErr         error

	putCalls   int
	nextCalls  int
	closeCalls int
	closedIDs  []string
	lastRange  [2]string
	lastInvoke string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{state: map[string][]byte{}}
}

func (f *fakeTransport) GetState(channelID, txID, key string) ([]byte, error) {
	return f.state[key], nil
}

func (f *fakeTransport) PutState(channelID, txID, key string, value []byte) error {
	f.putCalls++
	f.state[key] = value
	return nil
}

func (f *fakeTransport) DelState(channelID, txID, key string) error {
	delete(f.state, key)
	return nil
}

func (f *fakeTransport) GetStateByRange(channelID, txID, startKey, endKey string) (*peer.QueryResponse, error) {
	f.lastRange = [2]string{startKey, endKey}
	return f.rangeResponse, nil
}

func (f *fakeTransport) GetQueryResult(channelID, txID, query string) (*peer.QueryResponse, error) {
	return f.queryResponse, nil
}

func (f *fakeTransport) GetHistoryForKey(channelID, txID, key string) (*peer.QueryResponse, error) {
	return f.historyResponse, nil
}

func (f *fakeTransport) QueryStateNext(channelID, txID, queryID string) (*peer.QueryResponse, error) {
	f.nextCalls++
	if f.nextErr != nil {
		return nil, f.nextErr
	}
	if len(f.nextResponses) == 0 {
		return nil, errors.New("no scripted continuation chunk")
	}
	response := f.nextResponses[0]
	f.nextResponses = f.nextResponses[1:]
	return response, nil
}

func (f *fakeTransport) QueryStateClose(channelID, txID, queryID string) error {
	f.closeCalls++
	f.closedIDs = append(f.closedIDs, queryID)
	return nil
}

func (f *fakeTransport) InvokeChaincode(channelID, txID, chaincodeName string, args [][]byte) peer.Response {
	f.lastInvoke = chaincodeName
	return Success([]byte("invoked"))
}

func marshalKV(t *testing.T, key string, value []byte) *peer.QueryResultBytes {
	resultBytes, err := proto.Marshal(&queryresult.KV{Key: key, Value: value})
	assert.NoError(t, err)
	return &peer.QueryResultBytes{ResultBytes: resultBytes}
}

func drainKeys(t *testing.T, iter *StateQueryIterator) []string {
	keys := []string{}
	for iter.HasNext() {
		kv, err := iter.Next()
		assert.NoError(t, err)
		keys = append(keys, kv.Key)
	}
	return keys
}

func TestIteratorExhaustion(t *testing.T) {
	is := assert.New(t)

	transport := newFakeTransport()
	transport.nextResponses = []*peer.QueryResponse{
		{Results: []*peer.QueryResultBytes{marshalKV(t, "c", nil)}, Id: "q1"},
	}
	first := &peer.QueryResponse{
		Results: []*peer.QueryResultBytes{marshalKV(t, "a", nil), marshalKV(t, "b", nil)},
		HasMore: true,
		Id:      "q1",
	}

	iter := newStateQueryIterator(transport, "ch1", "tx-1", first)
	is.Equal([]string{"a", "b", "c"}, drainKeys(t, iter))
	is.False(iter.HasNext())

	_, err := iter.Next()
	is.Error(err)
	is.Equal(1, transport.nextCalls)
}

func TestIteratorSkipsEmptyContinuationChunk(t *testing.T) {
	is := assert.New(t)

	transport := newFakeTransport()
	transport.nextResponses = []*peer.QueryResponse{
		{HasMore: true, Id: "q1"},
		{Results: []*peer.QueryResultBytes{marshalKV(t, "b", nil)}, Id: "q1"},
	}
	first := &peer.QueryResponse{
		Results: []*peer.QueryResultBytes{marshalKV(t, "a", nil)},
		HasMore: true,
		Id:      "q1",
	}

	iter := newStateQueryIterator(transport, "ch1", "tx-1", first)
	is.Equal([]string{"a", "b"}, drainKeys(t, iter))
	is.Equal(2, transport.nextCalls)
}

func TestIteratorMalformedResultAbortsIteration(t *testing.T) {
	is := assert.New(t)

	transport := newFakeTransport()
	first := &peer.QueryResponse{
		Results: []*peer.QueryResultBytes{
			{ResultBytes: []byte{0xff, 0xff}},
			marshalKV(t, "after-bad", nil),
		},
		HasMore: true,
		Id:      "q1",
	}

	iter := newStateQueryIterator(transport, "ch1", "tx-1", first)
	_, err := iter.Next()
	is.Error(err)
	is.True(errors.Is(err, ErrMalformedResult))

	// the malformed result poisons the iterator: the well-formed item
	// behind it must not surface and no continuation chunk is fetched
	is.False(iter.HasNext())
	_, err = iter.Next()
	is.Error(err)
	is.Equal(0, transport.nextCalls)
}

func TestIteratorUseAfterClose(t *testing.T) {
	is := assert.New(t)

	transport := newFakeTransport()
	first := &peer.QueryResponse{
		Results: []*peer.QueryResultBytes{marshalKV(t, "a", nil)},
		Id:      "q7",
	}

	iter := newStateQueryIterator(transport, "ch1", "tx-1", first)
	is.NoError(iter.Close())
	is.False(iter.HasNext())

	_, err := iter.Next()
	is.Error(err)
	is.True(errors.Is(err, ErrIteratorClosed))

	// Close is idempotent, the cursor is released exactly once
	is.NoError(iter.Close())
	is.Equal(1, transport.closeCalls)
	is.Equal([]string{"q7"}, transport.closedIDs)
}

func TestIteratorContinuationFailure(t *testing.T) {
	is := assert.New(t)

	transport := newFakeTransport()
	transport.nextErr = pkgerrors.New("peer unreachable")
	first := &peer.QueryResponse{
		Results: []*peer.QueryResultBytes{marshalKV(t, "a", nil)},
		HasMore: true,
		Id:      "q1",
	}

	iter := newStateQueryIterator(transport, "ch1", "tx-1", first)
	kv, err := iter.Next()
	is.NoError(err)
	is.Equal("a", kv.Key)

	_, err = iter.Next()
	is.Error(err)
	// failed fetch is not retried, iterator reads as exhausted
	is.False(iter.HasNext())
	is.Equal(1, transport.nextCalls)
}

func TestHistoryIteratorDecodesModifications(t *testing.T) {
	is := assert.New(t)

	modBytes, err := proto.Marshal(&queryresult.KeyModification{TxId: "tx-9", IsDelete: true})
	is.NoError(err)
	transport := newFakeTransport()
	first := &peer.QueryResponse{
		Results: []*peer.QueryResultBytes{{ResultBytes: modBytes}},
	}

	iter := newHistoryQueryIterator(transport, "ch1", "tx-1", first)
	is.True(iter.HasNext())
	mod, err := iter.Next()
	is.NoError(err)
	is.Equal("tx-9", mod.TxId)
	is.True(mod.IsDelete)
	is.False(iter.HasNext())
}
