package shim

import "github.com/hyperledger/fabric-protos-go/peer"

// Response statuses. Everything at or above ERRORTHRESHOLD is rejected
// by the endorser; everything at or above ERROR is an execution failure.
const (
	OK             = 200
	ERRORTHRESHOLD = 400
	ERROR          = 500
)

// Success builds a peer.Response with status OK.
func Success(payload []byte) peer.Response {
	return peer.Response{
		Status:  OK,
		Payload: payload,
	}
}

// Error builds a peer.Response with status ERROR and the given message.
func Error(msg string) peer.Response {
	return peer.Response{
		Status:  ERROR,
		Message: msg,
	}
}
