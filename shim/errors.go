package shim

import "github.com/pkg/errors"

// Sentinel errors for the failure classes the stub can produce. Callers
// match them with errors.Is; the wrapped message carries the detail.
var (
	// ErrMalformedProposal : the signed proposal (or one of its nested
	// envelopes) could not be decoded. The transaction cannot run.
	ErrMalformedProposal = errors.New("malformed signed proposal")

	// ErrUnsupportedProposalType : the channel header carries a transaction
	// type other than an endorser transaction or a config transaction.
	ErrUnsupportedProposalType = errors.New("unsupported proposal type")

	// ErrInvalidArgument : an argument was rejected before any peer call
	// (empty state key, empty event name, ill-formed range bound).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidKeyComponent : a composite key component contains a
	// reserved code point.
	ErrInvalidKeyComponent = errors.New("invalid composite key component")

	// ErrMalformedResult : a query result chunk item could not be decoded.
	// The iterator that hit it is no longer usable.
	ErrMalformedResult = errors.New("malformed query result")

	// ErrIteratorClosed : iterator used after Close.
	ErrIteratorClosed = errors.New("iterator is closed")
)
