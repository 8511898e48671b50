package shim

import (
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"ledgershim/log"
)

// CommonIterator drains a chunked query response. It is seeded with the
// first chunk fetched at construction and pulls continuation chunks from
// the transport as the local buffer empties, using the chunk Id as the
// continuation token. Forward-only, single pass, not safe for use by
// more than one goroutine.
type CommonIterator struct {
	transport  Transport
	channelID  string
	txID       string
	response   *peer.QueryResponse
	currentLoc int
	closed     bool
	decode     func(resultBytes []byte) (interface{}, error)
}

// StateQueryIterator iterates over key/value results from range, partial
// composite key and rich queries.
type StateQueryIterator struct {
	*CommonIterator
}

// HistoryQueryIterator iterates over the modification records of one key.
type HistoryQueryIterator struct {
	*CommonIterator
}

func newStateQueryIterator(transport Transport, channelID, txID string, response *peer.QueryResponse) *StateQueryIterator {
	return &StateQueryIterator{&CommonIterator{
		transport: transport,
		channelID: channelID,
		txID:      txID,
		response:  response,
		decode:    decodeKV,
	}}
}

func newHistoryQueryIterator(transport Transport, channelID, txID string, response *peer.QueryResponse) *HistoryQueryIterator {
	return &HistoryQueryIterator{&CommonIterator{
		transport: transport,
		channelID: channelID,
		txID:      txID,
		response:  response,
		decode:    decodeKeyModification,
	}}
}

func decodeKV(resultBytes []byte) (interface{}, error) {
	kv := &queryresult.KV{}
	if err := proto.Unmarshal(resultBytes, kv); err != nil {
		return nil, errors.Wrapf(ErrMalformedResult, "decoding key/value result: %s", err)
	}
	return kv, nil
}

func decodeKeyModification(resultBytes []byte) (interface{}, error) {
	km := &queryresult.KeyModification{}
	if err := proto.Unmarshal(resultBytes, km); err != nil {
		return nil, errors.Wrapf(ErrMalformedResult, "decoding key modification result: %s", err)
	}
	return km, nil
}

// Next documentation can be found in interfaces.go
func (iter *StateQueryIterator) Next() (*queryresult.KV, error) {
	result, err := iter.nextResult()
	if err != nil {
		return nil, err
	}
	return result.(*queryresult.KV), nil
}

// Next documentation can be found in interfaces.go
func (iter *HistoryQueryIterator) Next() (*queryresult.KeyModification, error) {
	result, err := iter.nextResult()
	if err != nil {
		return nil, err
	}
	return result.(*queryresult.KeyModification), nil
}

// HasNext documentation can be found in interfaces.go
func (iter *CommonIterator) HasNext() bool {
	if iter.closed {
		return false
	}
	return iter.currentLoc < len(iter.response.Results) || iter.response.GetHasMore()
}

func (iter *CommonIterator) nextResult() (interface{}, error) {
	if iter.closed {
		return nil, errors.WithStack(ErrIteratorClosed)
	}
	for iter.currentLoc >= len(iter.response.Results) {
		if !iter.response.GetHasMore() {
			return nil, errors.New("no more results")
		}
		if err := iter.fetchNextChunk(); err != nil {
			return nil, err
		}
	}
	resultBytes := iter.response.Results[iter.currentLoc].GetResultBytes()
	result, err := iter.decode(resultBytes)
	if err != nil {
		// a malformed result aborts the iteration: drop the buffered
		// state so the iterator reads as exhausted afterwards
		log.Errorf("[%s] failed to decode query result: %s", shorttxid(iter.txID), err)
		iter.response = &peer.QueryResponse{Id: iter.response.GetId()}
		iter.currentLoc = 0
		return nil, err
	}
	iter.currentLoc++
	return result, nil
}

// fetchNextChunk requests the continuation chunk for the current query
// cursor. At most one such request is ever in flight per iterator. A
// transport failure is not retried: the buffered state is dropped so the
// iterator reads as exhausted afterwards.
func (iter *CommonIterator) fetchNextChunk() error {
	response, err := iter.transport.QueryStateNext(iter.channelID, iter.txID, iter.response.GetId())
	if err != nil {
		iter.response = &peer.QueryResponse{Id: iter.response.GetId()}
		iter.currentLoc = 0
		return err
	}
	iter.response = response
	iter.currentLoc = 0
	return nil
}

// Close documentation can be found in interfaces.go
func (iter *CommonIterator) Close() error {
	if iter.closed {
		return nil
	}
	iter.closed = true
	return iter.transport.QueryStateClose(iter.channelID, iter.txID, iter.response.GetId())
}
