package types

import (
	"encoding/json"
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/medusa-geth/rlp"
	"golang.org/x/crypto/sha3"
)

// CallMessage describes a transaction submitted to a chain.TestChain. Transactions are unsigned: the sender is
// trusted as provided, as the simulated chains perform no signature validation.
type CallMessage struct {
	// MsgFrom represents the sender of the message.
	MsgFrom common.Address

	// MsgTo represents the receiving address for a given message. A nil value indicates a deployment.
	MsgTo *common.Address

	// MsgNonce represents the sender's nonce. It is populated by the chain when the message is sent.
	MsgNonce uint64

	// MsgValue represents native value to be sent to the receiver of the message.
	MsgValue *big.Int

	// MsgData represents the underlying message data (ABI encoded call data) to be sent to the receiver.
	MsgData []byte
}

// NewCallMessage instantiates a new call message from a given set of parameters. A nil value is treated as zero.
func NewCallMessage(from common.Address, to *common.Address, value *big.Int, data []byte) *CallMessage {
	if value == nil {
		value = new(big.Int)
	}
	return &CallMessage{
		MsgFrom:  from,
		MsgTo:    to,
		MsgValue: new(big.Int).Set(value),
		MsgData:  common.CopyBytes(data),
	}
}

func (m *CallMessage) From() common.Address { return m.MsgFrom }
func (m *CallMessage) To() *common.Address  { return m.MsgTo }
func (m *CallMessage) Nonce() uint64        { return m.MsgNonce }
func (m *CallMessage) Value() *big.Int      { return m.MsgValue }
func (m *CallMessage) Data() []byte         { return m.MsgData }

// callMessageHashFields describes the fields committed to by a CallMessage hash, in RLP encoding order.
type callMessageHashFields struct {
	ChainID *big.Int
	From    common.Address
	To      []byte
	Nonce   uint64
	Value   *big.Int
	Data    []byte
}

// Hash returns the transaction hash of the message, scoped to the provided chain id: the Keccak256 digest of the RLP
// encoding of the chain id and every message field. Messages sent from the same account always differ by nonce,
// so hashes are unique within a chain.
func (m *CallMessage) Hash(chainID uint64) common.Hash {
	var to []byte
	if m.MsgTo != nil {
		to = m.MsgTo.Bytes()
	}
	value := m.MsgValue
	if value == nil {
		value = new(big.Int)
	}
	encoded, err := rlp.EncodeToBytes(callMessageHashFields{
		ChainID: new(big.Int).SetUint64(chainID),
		From:    m.MsgFrom,
		To:      to,
		Nonce:   m.MsgNonce,
		Value:   value,
		Data:    m.MsgData,
	})
	if err != nil {
		panic(err)
	}

	hash := sha3.NewLegacyKeccak256()
	hash.Write(encoded)
	return common.BytesToHash(hash.Sum(nil))
}

// callMessageMarshaling describes the JSON representation of a CallMessage.
type callMessageMarshaling struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Nonce hexutil.Uint64  `json:"nonce"`
	Value *hexutil.Big    `json:"value"`
	Data  hexutil.Bytes   `json:"data"`
}

// MarshalJSON provides custom JSON marshaling for a CallMessage, encoding numeric and byte fields as hex strings.
func (m CallMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(callMessageMarshaling{
		From:  m.MsgFrom,
		To:    m.MsgTo,
		Nonce: hexutil.Uint64(m.MsgNonce),
		Value: (*hexutil.Big)(m.MsgValue),
		Data:  m.MsgData,
	})
}

// UnmarshalJSON provides custom JSON unmarshaling for a CallMessage.
func (m *CallMessage) UnmarshalJSON(data []byte) error {
	var dec callMessageMarshaling
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	m.MsgFrom = dec.From
	m.MsgTo = dec.To
	m.MsgNonce = uint64(dec.Nonce)
	m.MsgValue = (*big.Int)(dec.Value)
	m.MsgData = dec.Data
	return nil
}
