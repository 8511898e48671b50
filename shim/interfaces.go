// Package shim is the per-transaction ledger access layer handed to
// contract code. One ChaincodeStub is created per transaction from the
// signed proposal that started it; every state operation it exposes is
// executed on the peer through the Transport interface, correlated by
// (channelID, txID).
package shim

import (
	"time"

	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go/peer"
)

// Transport performs the remote ledger operations on behalf of a
// transaction. Implementations own connection lifecycle, serialization
// and request multiplexing; every method blocks until the matching
// response arrives. Calls for different transactions may proceed
// concurrently, correlation is by (channelID, txID).
//
// Chunked queries (range, rich query, history) return the first
// *peer.QueryResponse eagerly; its Id field is the continuation token
// consumed by QueryStateNext and released by QueryStateClose.
type Transport interface {
	GetState(channelID, txID, key string) ([]byte, error)
	PutState(channelID, txID, key string, value []byte) error
	DelState(channelID, txID, key string) error
	GetStateByRange(channelID, txID, startKey, endKey string) (*peer.QueryResponse, error)
	GetQueryResult(channelID, txID, query string) (*peer.QueryResponse, error)
	GetHistoryForKey(channelID, txID, key string) (*peer.QueryResponse, error)
	QueryStateNext(channelID, txID, queryID string) (*peer.QueryResponse, error)
	QueryStateClose(channelID, txID, queryID string) error
	InvokeChaincode(channelID, txID, chaincodeName string, args [][]byte) peer.Response
}

// ChaincodeStubInterface is used by contract code to access and modify
// ledger state and to read the identity context of the transaction.
type ChaincodeStubInterface interface {
	// GetArgs returns the arguments intended for the chaincode Init and
	// Invoke as an array of byte arrays.
	GetArgs() [][]byte

	// GetStringArgs returns the arguments as a string array.
	// Only use GetStringArgs if the client passes arguments intended to
	// be used as strings.
	GetStringArgs() []string

	// GetFunctionAndParameters returns the first argument as the function
	// name and the rest of the arguments as parameters in a string array.
	GetFunctionAndParameters() (string, []string)

	// GetArgsSlice returns the arguments as one concatenated byte slice.
	GetArgsSlice() ([]byte, error)

	// GetTxID returns the tx_id of the transaction proposal, unique per
	// transaction and per client.
	GetTxID() string

	// GetChannelID returns the channel the proposal was sent to for this
	// chaincode to process.
	GetChannelID() string

	// GetState returns the value of the specified key from the ledger. Note
	// that GetState doesn't read data from the writeset, which has not been
	// committed to the ledger. In other words, GetState doesn't consider
	// data modified by PutState that has not been committed.
	// If the key does not exist in the state database, (nil, nil) is returned.
	GetState(key string) ([]byte, error)

	// PutState puts the specified key and value into the transaction's
	// writeset as a data-write proposal. PutState doesn't affect the ledger
	// until the transaction is validated and successfully committed.
	// Keys must not be empty and must not start with the reserved
	// null code point.
	PutState(key string, value []byte) error

	// DelState records the specified key to be deleted in the writeset of
	// the transaction proposal. The key and its value will be deleted from
	// the ledger when the transaction is validated and successfully committed.
	DelState(key string) error

	// GetStateByRange returns a range iterator over a set of keys in the
	// ledger. The iterator can be used to iterate over all keys between the
	// startKey (inclusive) and endKey (exclusive) in lexical order. An empty
	// startKey or endKey means an open-ended bound on that side.
	// Call Close() on the returned iterator when done.
	// The query is re-executed during validation phase to ensure result set
	// has not changed since transaction endorsement (phantom reads detected).
	GetStateByRange(startKey, endKey string) (StateQueryIteratorInterface, error)

	// GetStateByPartialCompositeKey queries the state based on a given
	// partial composite key. This function returns an iterator which can be
	// used to iterate over all composite keys whose prefix matches the given
	// partial composite key, in lexical order.
	// Call Close() on the returned iterator when done.
	GetStateByPartialCompositeKey(objectType string, attributes []string) (StateQueryIteratorInterface, error)

	// CreateCompositeKey combines the given objectType and attributes into
	// one flat key suitable for range queries over a subset of keys.
	CreateCompositeKey(objectType string, attributes []string) (string, error)

	// SplitCompositeKey splits the specified key into the attributes on
	// which the composite key was formed.
	SplitCompositeKey(compositeKey string) (string, []string, error)

	// GetQueryResult performs a "rich" query against a state database that
	// supports it (e.g. CouchDB). The query string is in the native syntax
	// of the underlying state database and is passed through opaquely.
	// Call Close() on the returned iterator when done.
	// The query is NOT re-executed during validation phase, phantom reads
	// are not detected.
	GetQueryResult(query string) (StateQueryIteratorInterface, error)

	// GetHistoryForKey returns a history of key values across time.
	// For each historic key update, the historic value and associated
	// transaction id and timestamp are returned, including deletions.
	// Call Close() on the returned iterator when done.
	GetHistoryForKey(key string) (HistoryQueryIteratorInterface, error)

	// InvokeChaincode locally calls the specified chaincode Invoke using
	// the same transaction context; if the called chaincode is on a
	// different channel only its Response is returned, any PutState it
	// attempts will not take effect.
	// If channel is empty, the caller's channel is assumed.
	InvokeChaincode(chaincodeName string, args [][]byte, channel string) peer.Response

	// GetCreator returns the serialized identity of the submitter of the
	// transaction proposal. Returns nil when the stub was created without
	// a signed proposal.
	GetCreator() ([]byte, error)

	// GetTransient returns the proposal's transient field: data (e.g.
	// cryptographic material) sent with the proposal but not written to
	// the ledger and not included in the transaction.
	GetTransient() (map[string][]byte, error)

	// GetBinding returns the digest tying this execution context to the
	// originating proposal nonce, creator and epoch. Used to enforce a
	// link between application data (e.g. those stored in the transient
	// field) and the proposal itself, guarding against replay.
	GetBinding() ([]byte, error)

	// GetTxTimestamp returns the timestamp the transaction was created,
	// taken from the transaction channel header. It is therefore identical
	// across all endorsers.
	GetTxTimestamp() (time.Time, error)

	// GetSignedProposal returns the signed proposal this stub was derived
	// from, or nil for non-endorsing contexts.
	GetSignedProposal() *peer.SignedProposal

	// SetEvent allows the chaincode to set one event on the response to the
	// proposal, to be included as part of a transaction. The event will be
	// available within the transaction in the committed block regardless of
	// the validity of the transaction. At most one event per transaction;
	// a later SetEvent overwrites an earlier one.
	SetEvent(name string, payload []byte) error

	// GetEvent returns the event set on this transaction, or nil.
	GetEvent() *peer.ChaincodeEvent
}

// CommonIteratorInterface allows a chaincode to check whether any more
// result to be fetched from an iterator and close it when done.
type CommonIteratorInterface interface {
	// HasNext returns true if the range query iterator contains additional
	// keys and values.
	HasNext() bool

	// Close closes the iterator and releases the peer-side query cursor.
	// This should be called when done reading from the iterator to free up
	// resources. Close is idempotent; any Next after Close fails with
	// ErrIteratorClosed.
	Close() error
}

// StateQueryIteratorInterface allows a chaincode to iterate over a set
// of key/value pairs returned by range, partial composite key and rich
// queries.
type StateQueryIteratorInterface interface {
	CommonIteratorInterface

	// Next returns the next key and value in the query iterator.
	Next() (*queryresult.KV, error)
}

// HistoryQueryIteratorInterface allows a chaincode to iterate over the
// modification records returned by a history query.
type HistoryQueryIteratorInterface interface {
	CommonIteratorInterface

	// Next returns the next key modification in the history iterator.
	Next() (*queryresult.KeyModification, error)
}
