package shim

import (
	"time"

	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"ledgershim/log"
)

// ChaincodeStub is the object passed to contract code to access its
// state variables and transaction context. One stub is created per
// transaction and confined to it; no internal locking is needed because
// a stub is only ever driven by the single execution that owns it.
type ChaincodeStub struct {
	transport Transport
	context   *TransactionContext
	args      [][]byte

	chaincodeEvent *peer.ChaincodeEvent
}

// NewChaincodeStub derives the transaction context from the signed
// proposal and binds the stub to the transport. signedProposal may be
// nil for non-endorsing contexts. Construction fails fatally when the
// proposal cannot be decoded or carries an unsupported transaction type.
func NewChaincodeStub(transport Transport, channelID, txID string, args [][]byte, signedProposal *peer.SignedProposal) (*ChaincodeStub, error) {
	context, err := newTransactionContext(channelID, txID, signedProposal)
	if err != nil {
		log.Errorf("[%s] failed deriving transaction context: %s", shorttxid(txID), err)
		return nil, err
	}
	return &ChaincodeStub{
		transport: transport,
		context:   context,
		args:      args,
	}, nil
}

func shorttxid(txid string) string {
	if len(txid) < 8 {
		return txid
	}
	return txid[0:8]
}

// --- argument access ---

// GetArgs documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetArgs() [][]byte {
	return stub.args
}

// GetStringArgs documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetStringArgs() []string {
	strargs := make([]string, 0, len(stub.args))
	for _, barg := range stub.args {
		strargs = append(strargs, string(barg))
	}
	return strargs
}

// GetFunctionAndParameters documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetFunctionAndParameters() (string, []string) {
	allargs := stub.GetStringArgs()
	if len(allargs) >= 1 {
		return allargs[0], allargs[1:]
	}
	return "", []string{}
}

// GetArgsSlice documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetArgsSlice() ([]byte, error) {
	res := []byte{}
	for _, barg := range stub.args {
		res = append(res, barg...)
	}
	return res, nil
}

// --- transaction context access ---

// GetTxID documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetTxID() string {
	return stub.context.txID
}

// GetChannelID documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetChannelID() string {
	return stub.context.channelID
}

// GetCreator documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetCreator() ([]byte, error) {
	return copyBytes(stub.context.creator), nil
}

// GetTransient documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetTransient() (map[string][]byte, error) {
	transient := make(map[string][]byte, len(stub.context.transient))
	for k, v := range stub.context.transient {
		transient[k] = copyBytes(v)
	}
	return transient, nil
}

// GetBinding documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetBinding() ([]byte, error) {
	return copyBytes(stub.context.binding), nil
}

// GetTxTimestamp documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetTxTimestamp() (time.Time, error) {
	if !stub.context.hasTimestamp {
		return time.Time{}, errors.New("no signed proposal, transaction timestamp unavailable")
	}
	return stub.context.txTimestamp, nil
}

// GetSignedProposal documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetSignedProposal() *peer.SignedProposal {
	return stub.context.signedProposal
}

// copies preserve absence: nil in, nil out.
func copyBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

// --- state functions ---

// GetState documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetState(key string) ([]byte, error) {
	log.Debugf("[%s] GetState key = %s", shorttxid(stub.context.txID), key)
	return stub.transport.GetState(stub.context.channelID, stub.context.txID, key)
}

// PutState documentation can be found in interfaces.go
func (stub *ChaincodeStub) PutState(key string, value []byte) error {
	if key == "" {
		return errors.Wrap(ErrInvalidArgument, "key must not be an empty string")
	}
	log.Debugf("[%s] PutState key = %s", shorttxid(stub.context.txID), key)
	return stub.transport.PutState(stub.context.channelID, stub.context.txID, key, value)
}

// DelState documentation can be found in interfaces.go
func (stub *ChaincodeStub) DelState(key string) error {
	log.Debugf("[%s] DelState key = %s", shorttxid(stub.context.txID), key)
	return stub.transport.DelState(stub.context.channelID, stub.context.txID, key)
}

// --- range and query functions ---

// GetStateByRange documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetStateByRange(startKey, endKey string) (StateQueryIteratorInterface, error) {
	if startKey == "" {
		startKey = UnspecifiedKey
	}
	if endKey == "" {
		endKey = UnspecifiedKey
	}
	if err := ValidateSimpleKeys(startKey, endKey); err != nil {
		return nil, err
	}
	log.Debugf("[%s] GetStateByRange [%x, %x)", shorttxid(stub.context.txID), startKey, endKey)
	response, err := stub.transport.GetStateByRange(stub.context.channelID, stub.context.txID, startKey, endKey)
	if err != nil {
		return nil, err
	}
	return newStateQueryIterator(stub.transport, stub.context.channelID, stub.context.txID, response), nil
}

// GetStateByPartialCompositeKey documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetStateByPartialCompositeKey(objectType string, attributes []string) (StateQueryIteratorInterface, error) {
	startKey, endKey, err := rangeKeysForPartialCompositeKey(objectType, attributes)
	if err != nil {
		return nil, err
	}
	log.Debugf("[%s] GetStateByPartialCompositeKey objectType = %s", shorttxid(stub.context.txID), objectType)
	response, err := stub.transport.GetStateByRange(stub.context.channelID, stub.context.txID, startKey, endKey)
	if err != nil {
		return nil, err
	}
	return newStateQueryIterator(stub.transport, stub.context.channelID, stub.context.txID, response), nil
}

// CreateCompositeKey documentation can be found in interfaces.go
func (stub *ChaincodeStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return CreateCompositeKey(objectType, attributes)
}

// SplitCompositeKey documentation can be found in interfaces.go
func (stub *ChaincodeStub) SplitCompositeKey(compositeKey string) (string, []string, error) {
	return SplitCompositeKey(compositeKey)
}

// GetQueryResult documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetQueryResult(query string) (StateQueryIteratorInterface, error) {
	log.Debugf("[%s] GetQueryResult query = %s", shorttxid(stub.context.txID), query)
	response, err := stub.transport.GetQueryResult(stub.context.channelID, stub.context.txID, query)
	if err != nil {
		return nil, err
	}
	return newStateQueryIterator(stub.transport, stub.context.channelID, stub.context.txID, response), nil
}

// GetHistoryForKey documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetHistoryForKey(key string) (HistoryQueryIteratorInterface, error) {
	log.Debugf("[%s] GetHistoryForKey key = %s", shorttxid(stub.context.txID), key)
	response, err := stub.transport.GetHistoryForKey(stub.context.channelID, stub.context.txID, key)
	if err != nil {
		return nil, err
	}
	return newHistoryQueryIterator(stub.transport, stub.context.channelID, stub.context.txID, response), nil
}

// --- chaincode to chaincode ---

// InvokeChaincode documentation can be found in interfaces.go
func (stub *ChaincodeStub) InvokeChaincode(chaincodeName string, args [][]byte, channel string) peer.Response {
	// the target chaincode is addressed by a composite name internally
	if channel != "" {
		chaincodeName = chaincodeName + "/" + channel
	}
	log.Debugf("[%s] InvokeChaincode target = %s", shorttxid(stub.context.txID), chaincodeName)
	return stub.transport.InvokeChaincode(stub.context.channelID, stub.context.txID, chaincodeName, args)
}

// --- events ---

// SetEvent documentation can be found in interfaces.go
func (stub *ChaincodeStub) SetEvent(name string, payload []byte) error {
	if name == "" {
		return errors.Wrap(ErrInvalidArgument, "event name can not be empty")
	}
	stub.chaincodeEvent = &peer.ChaincodeEvent{EventName: name, Payload: payload}
	return nil
}

// GetEvent documentation can be found in interfaces.go
func (stub *ChaincodeStub) GetEvent() *peer.ChaincodeEvent {
	return stub.chaincodeEvent
}
