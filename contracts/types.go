package contracts

import (
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
)

// Call describes a single call of a proposal, as ABI encoded in InterchainCall.Calls and proposal payloads.
type Call struct {
	Target   common.Address `abi:"target"`
	Value    *big.Int       `abi:"value"`
	CallData []byte         `abi:"callData"`
}

// InterchainCall describes one proposal submitted to the proposal sender's sendProposals method.
type InterchainCall struct {
	DestinationChain    string   `abi:"destinationChain"`
	DestinationContract string   `abi:"destinationContract"`
	Gas                 *big.Int `abi:"gas"`
	Calls               []Call   `abi:"calls"`
}

// ContractCallApprovalParams describes the parameters of a gateway approveContractCall command.
type ContractCallApprovalParams struct {
	SourceChain      string
	SourceAddress    string
	ContractAddress  common.Address
	PayloadHash      common.Hash
	SourceTxHash     common.Hash
	SourceEventIndex *big.Int
}

// ContractCallWithMintApprovalParams describes the parameters of a gateway approveContractCallWithMint command.
type ContractCallWithMintApprovalParams struct {
	SourceChain      string
	SourceAddress    string
	ContractAddress  common.Address
	PayloadHash      common.Hash
	Symbol           string
	Amount           *big.Int
	SourceTxHash     common.Hash
	SourceEventIndex *big.Int
}

var (
	// Elementary ABI types used to encode command parameters.
	addressType, _ = abi.NewType("address", "", nil)
	stringType, _  = abi.NewType("string", "", nil)
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	bytesType, _   = abi.NewType("bytes", "", nil)

	// callsType is the ABI type of a list of Call.
	callsType, _ = abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "target", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "callData", Type: "bytes"},
	})

	// proposalPayloadArguments describes the payload relayed by the proposal sender: abi.encode(caller, calls).
	proposalPayloadArguments = abi.Arguments{{Type: addressType}, {Type: callsType}}

	// approvalParamsArguments describes the params of approveContractCall.
	approvalParamsArguments = abi.Arguments{
		{Type: stringType}, {Type: stringType}, {Type: addressType}, {Type: bytes32Type}, {Type: bytes32Type}, {Type: uint256Type},
	}

	// approvalWithMintParamsArguments describes the params of approveContractCallWithMint.
	approvalWithMintParamsArguments = abi.Arguments{
		{Type: stringType}, {Type: stringType}, {Type: addressType}, {Type: bytes32Type}, {Type: stringType}, {Type: uint256Type}, {Type: bytes32Type}, {Type: uint256Type},
	}
)

// EncodeProposalPayload encodes the payload the proposal sender relays for a proposal made by caller.
func EncodeProposalPayload(caller common.Address, calls []Call) ([]byte, error) {
	return proposalPayloadArguments.Pack(caller, normalizeCalls(calls))
}

// DecodeProposalPayload decodes a payload produced by EncodeProposalPayload.
func DecodeProposalPayload(payload []byte) (common.Address, []Call, error) {
	values, err := proposalPayloadArguments.Unpack(payload)
	if err != nil {
		return common.Address{}, nil, errors.WithStack(err)
	}
	caller, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, nil, errors.New("proposal payload caller is not an address")
	}
	calls, ok := abi.ConvertType(values[1], new([]Call)).(*[]Call)
	if !ok {
		return common.Address{}, nil, errors.New("proposal payload calls could not be decoded")
	}
	return caller, *calls, nil
}

// Pack encodes the approval parameters as expected by approveContractCall.
func (p ContractCallApprovalParams) Pack() ([]byte, error) {
	return approvalParamsArguments.Pack(p.SourceChain, p.SourceAddress, p.ContractAddress, p.PayloadHash, p.SourceTxHash, bigOrZero(p.SourceEventIndex))
}

// UnpackContractCallApprovalParams decodes the params of an approveContractCall command.
func UnpackContractCallApprovalParams(data []byte) (*ContractCallApprovalParams, error) {
	values, err := approvalParamsArguments.Unpack(data)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &ContractCallApprovalParams{
		SourceChain:      values[0].(string),
		SourceAddress:    values[1].(string),
		ContractAddress:  values[2].(common.Address),
		PayloadHash:      values[3].([32]byte),
		SourceTxHash:     values[4].([32]byte),
		SourceEventIndex: values[5].(*big.Int),
	}, nil
}

// Pack encodes the approval parameters as expected by approveContractCallWithMint.
func (p ContractCallWithMintApprovalParams) Pack() ([]byte, error) {
	return approvalWithMintParamsArguments.Pack(
		p.SourceChain, p.SourceAddress, p.ContractAddress, p.PayloadHash, p.Symbol, bigOrZero(p.Amount), p.SourceTxHash, bigOrZero(p.SourceEventIndex),
	)
}

// UnpackContractCallWithMintApprovalParams decodes the params of an approveContractCallWithMint command.
func UnpackContractCallWithMintApprovalParams(data []byte) (*ContractCallWithMintApprovalParams, error) {
	values, err := approvalWithMintParamsArguments.Unpack(data)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &ContractCallWithMintApprovalParams{
		SourceChain:      values[0].(string),
		SourceAddress:    values[1].(string),
		ContractAddress:  values[2].(common.Address),
		PayloadHash:      values[3].([32]byte),
		Symbol:           values[4].(string),
		Amount:           values[5].(*big.Int),
		SourceTxHash:     values[6].([32]byte),
		SourceEventIndex: values[7].(*big.Int),
	}, nil
}

// normalizeCalls replaces nil values and payloads so calls can be ABI encoded.
func normalizeCalls(calls []Call) []Call {
	normalized := make([]Call, len(calls))
	for i, call := range calls {
		normalized[i] = Call{Target: call.Target, Value: bigOrZero(call.Value), CallData: call.CallData}
		if normalized[i].CallData == nil {
			normalized[i].CallData = []byte{}
		}
	}
	return normalized
}

// bigOrZero returns value, or zero if it is nil.
func bigOrZero(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return value
}
