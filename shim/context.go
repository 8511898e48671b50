package shim

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// TransactionContext carries the immutable identity facts derived from
// the signed proposal: who submitted the transaction, when, with what
// transient data, and the binding digest tying the execution to the
// proposal. It is derived exactly once, at stub construction, and never
// mutated afterwards. A stub created without a proposal (internal calls
// to system chaincode) gets an all-absent context.
type TransactionContext struct {
	channelID      string
	txID           string
	signedProposal *peer.SignedProposal

	creator      []byte
	transient    map[string][]byte
	binding      []byte
	txTimestamp  time.Time
	hasTimestamp bool
}

// newTransactionContext decodes the nested proposal envelopes and
// extracts the context fields. Every decode failure is fatal: either a
// complete context is returned or none at all.
func newTransactionContext(channelID, txID string, signedProposal *peer.SignedProposal) (*TransactionContext, error) {
	c := &TransactionContext{
		channelID:      channelID,
		txID:           txID,
		signedProposal: signedProposal,
		transient:      map[string][]byte{},
	}
	if signedProposal == nil {
		return c, nil
	}

	proposal := &peer.Proposal{}
	if err := proto.Unmarshal(signedProposal.ProposalBytes, proposal); err != nil {
		return nil, errors.Wrapf(ErrMalformedProposal, "decoding proposal: %s", err)
	}
	header := &common.Header{}
	if err := proto.Unmarshal(proposal.Header, header); err != nil {
		return nil, errors.Wrapf(ErrMalformedProposal, "decoding header: %s", err)
	}
	channelHeader := &common.ChannelHeader{}
	if err := proto.Unmarshal(header.ChannelHeader, channelHeader); err != nil {
		return nil, errors.Wrapf(ErrMalformedProposal, "decoding channel header: %s", err)
	}
	if err := validateProposalType(channelHeader); err != nil {
		return nil, err
	}
	signatureHeader := &common.SignatureHeader{}
	if err := proto.Unmarshal(header.SignatureHeader, signatureHeader); err != nil {
		return nil, errors.Wrapf(ErrMalformedProposal, "decoding signature header: %s", err)
	}
	payload := &peer.ChaincodeProposalPayload{}
	if err := proto.Unmarshal(proposal.Payload, payload); err != nil {
		return nil, errors.Wrapf(ErrMalformedProposal, "decoding proposal payload: %s", err)
	}

	if ts := channelHeader.GetTimestamp(); ts != nil {
		txTimestamp, err := ptypes.Timestamp(ts)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedProposal, "decoding timestamp: %s", err)
		}
		c.txTimestamp = txTimestamp
	} else {
		c.txTimestamp = time.Unix(0, 0).UTC()
	}
	c.hasTimestamp = true
	c.creator = signatureHeader.Creator
	if payload.TransientMap != nil {
		c.transient = payload.TransientMap
	}
	c.binding = computeBinding(signatureHeader.Nonce, signatureHeader.Creator, channelHeader.Epoch)
	return c, nil
}

func validateProposalType(channelHeader *common.ChannelHeader) error {
	switch common.HeaderType(channelHeader.Type) {
	case common.HeaderType_ENDORSER_TRANSACTION, common.HeaderType_CONFIG:
		return nil
	default:
		return errors.Wrapf(ErrUnsupportedProposalType,
			"transaction type %s", common.HeaderType(channelHeader.Type))
	}
}

// computeBinding digests nonce || creator || epoch, the epoch encoded as
// 8 little-endian bytes. Endorsement layers recompute this digest to tie
// a response to the exact proposal, nonce and epoch; the byte layout
// must never change.
func computeBinding(nonce, creator []byte, epoch uint64) []byte {
	epochBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(epochBytes, epoch)

	h := sha256.New()
	h.Write(nonce)
	h.Write(creator)
	h.Write(epochBytes)
	return h.Sum(nil)
}
