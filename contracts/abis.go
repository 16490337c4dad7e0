package contracts

import (
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
)

// GatewayABIJSON describes the ABI of the cross-chain messaging gateway.
const GatewayABIJSON = `[
	{"type":"function","name":"callContract","stateMutability":"nonpayable","inputs":[
		{"name":"destinationChain","type":"string"},
		{"name":"contractAddress","type":"string"},
		{"name":"payload","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"callContractWithToken","stateMutability":"nonpayable","inputs":[
		{"name":"destinationChain","type":"string"},
		{"name":"contractAddress","type":"string"},
		{"name":"payload","type":"bytes"},
		{"name":"symbol","type":"string"},
		{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"approveContractCall","stateMutability":"nonpayable","inputs":[
		{"name":"params","type":"bytes"},
		{"name":"commandId","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"approveContractCallWithMint","stateMutability":"nonpayable","inputs":[
		{"name":"params","type":"bytes"},
		{"name":"commandId","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"validateContractCall","stateMutability":"nonpayable","inputs":[
		{"name":"commandId","type":"bytes32"},
		{"name":"sourceChain","type":"string"},
		{"name":"sourceAddress","type":"string"},
		{"name":"payloadHash","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"validateContractCallAndMint","stateMutability":"nonpayable","inputs":[
		{"name":"commandId","type":"bytes32"},
		{"name":"sourceChain","type":"string"},
		{"name":"sourceAddress","type":"string"},
		{"name":"payloadHash","type":"bytes32"},
		{"name":"symbol","type":"string"},
		{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isCommandExecuted","stateMutability":"view","inputs":[
		{"name":"commandId","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isContractCallApproved","stateMutability":"view","inputs":[
		{"name":"commandId","type":"bytes32"},
		{"name":"sourceChain","type":"string"},
		{"name":"sourceAddress","type":"string"},
		{"name":"contractAddress","type":"address"},
		{"name":"payloadHash","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"mintToken","stateMutability":"nonpayable","inputs":[
		{"name":"symbol","type":"string"},
		{"name":"account","type":"address"},
		{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"tokenBalance","stateMutability":"view","inputs":[
		{"name":"symbol","type":"string"},
		{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"ContractCall","anonymous":false,"inputs":[
		{"name":"sender","type":"address","indexed":true},
		{"name":"destinationChain","type":"string","indexed":false},
		{"name":"destinationContractAddress","type":"string","indexed":false},
		{"name":"payloadHash","type":"bytes32","indexed":true},
		{"name":"payload","type":"bytes","indexed":false}]},
	{"type":"event","name":"ContractCallWithToken","anonymous":false,"inputs":[
		{"name":"sender","type":"address","indexed":true},
		{"name":"destinationChain","type":"string","indexed":false},
		{"name":"destinationContractAddress","type":"string","indexed":false},
		{"name":"payloadHash","type":"bytes32","indexed":true},
		{"name":"payload","type":"bytes","indexed":false},
		{"name":"symbol","type":"string","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"ContractCallApproved","anonymous":false,"inputs":[
		{"name":"commandId","type":"bytes32","indexed":true},
		{"name":"sourceChain","type":"string","indexed":false},
		{"name":"sourceAddress","type":"string","indexed":false},
		{"name":"contractAddress","type":"address","indexed":true},
		{"name":"payloadHash","type":"bytes32","indexed":true},
		{"name":"sourceTxHash","type":"bytes32","indexed":false},
		{"name":"sourceEventIndex","type":"uint256","indexed":false}]},
	{"type":"event","name":"ContractCallApprovedWithMint","anonymous":false,"inputs":[
		{"name":"commandId","type":"bytes32","indexed":true},
		{"name":"sourceChain","type":"string","indexed":false},
		{"name":"sourceAddress","type":"string","indexed":false},
		{"name":"contractAddress","type":"address","indexed":true},
		{"name":"payloadHash","type":"bytes32","indexed":true},
		{"name":"symbol","type":"string","indexed":false},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"sourceTxHash","type":"bytes32","indexed":false},
		{"name":"sourceEventIndex","type":"uint256","indexed":false}]},
	{"type":"event","name":"Executed","anonymous":false,"inputs":[
		{"name":"commandId","type":"bytes32","indexed":true}]},
	{"type":"error","name":"AlreadyExecuted","inputs":[]},
	{"type":"error","name":"InsufficientTokenBalance","inputs":[]},
	{"type":"error","name":"NotOperator","inputs":[]}
]`

// ExecutableABIJSON describes the ABI every gateway-executable destination contract exposes.
const ExecutableABIJSON = `[
	{"type":"function","name":"gateway","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[
		{"name":"commandId","type":"bytes32"},
		{"name":"sourceChain","type":"string"},
		{"name":"sourceAddress","type":"string"},
		{"name":"payload","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"executeWithToken","stateMutability":"nonpayable","inputs":[
		{"name":"commandId","type":"bytes32"},
		{"name":"sourceChain","type":"string"},
		{"name":"sourceAddress","type":"string"},
		{"name":"payload","type":"bytes"},
		{"name":"tokenSymbol","type":"string"},
		{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"error","name":"NotApprovedByGateway","inputs":[]}
]`

// InterchainProposalSenderABIJSON describes the ABI of the proposal sender.
const InterchainProposalSenderABIJSON = `[
	{"type":"function","name":"gateway","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"gasService","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"sendProposals","stateMutability":"payable","inputs":[
		{"name":"interchainCalls","type":"tuple[]","components":[
			{"name":"destinationChain","type":"string"},
			{"name":"destinationContract","type":"string"},
			{"name":"gas","type":"uint256"},
			{"name":"calls","type":"tuple[]","components":[
				{"name":"target","type":"address"},
				{"name":"value","type":"uint256"},
				{"name":"callData","type":"bytes"}]}]}],"outputs":[]},
	{"type":"function","name":"sendProposal","stateMutability":"payable","inputs":[
		{"name":"destinationChain","type":"string"},
		{"name":"destinationContract","type":"string"},
		{"name":"calls","type":"tuple[]","components":[
			{"name":"target","type":"address"},
			{"name":"value","type":"uint256"},
			{"name":"callData","type":"bytes"}]}],"outputs":[]},
	{"type":"error","name":"InvalidFee","inputs":[]},
	{"type":"error","name":"InvalidGasService","inputs":[]}
]`

// InterchainProposalExecutorABIJSON describes the ABI of the proposal executor, in addition to ExecutableABIJSON.
const InterchainProposalExecutorABIJSON = `[
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"setWhitelistedProposalCaller","stateMutability":"nonpayable","inputs":[
		{"name":"sourceChain","type":"string"},
		{"name":"sourceCaller","type":"address"},
		{"name":"whitelisted","type":"bool"}],"outputs":[]},
	{"type":"function","name":"setWhitelistedProposalSender","stateMutability":"nonpayable","inputs":[
		{"name":"sourceChain","type":"string"},
		{"name":"sourceSender","type":"address"},
		{"name":"whitelisted","type":"bool"}],"outputs":[]},
	{"type":"function","name":"whitelistedCallers","stateMutability":"view","inputs":[
		{"name":"sourceChain","type":"string"},
		{"name":"sourceCaller","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"whitelistedSenders","stateMutability":"view","inputs":[
		{"name":"sourceChain","type":"string"},
		{"name":"sourceSender","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"WhitelistedProposalCallerSet","anonymous":false,"inputs":[
		{"name":"sourceChain","type":"string","indexed":true},
		{"name":"sourceCaller","type":"address","indexed":true},
		{"name":"whitelisted","type":"bool","indexed":false}]},
	{"type":"event","name":"WhitelistedProposalSenderSet","anonymous":false,"inputs":[
		{"name":"sourceChain","type":"string","indexed":true},
		{"name":"sourceSender","type":"address","indexed":true},
		{"name":"whitelisted","type":"bool","indexed":false}]},
	{"type":"event","name":"ProposalExecuted","anonymous":false,"inputs":[
		{"name":"payloadHash","type":"bytes32","indexed":true}]},
	{"type":"error","name":"NotWhitelistedCaller","inputs":[]},
	{"type":"error","name":"NotWhitelistedSourceAddress","inputs":[]},
	{"type":"error","name":"ProposalExecuteFailed","inputs":[]},
	{"type":"error","name":"InvalidAddressString","inputs":[]},
	{"type":"receive","stateMutability":"payable"}
]`

// PayloadReceiverMockABIJSON describes the ABI of the receiver double.
const PayloadReceiverMockABIJSON = `[
	{"type":"function","name":"lastPayload","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"lastValue","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"fallback","stateMutability":"payable"}
]`

var (
	// GatewayABI is the parsed GatewayABIJSON.
	GatewayABI = mustParseABI(GatewayABIJSON)

	// ExecutableABI is the parsed ExecutableABIJSON.
	ExecutableABI = mustParseABI(ExecutableABIJSON)

	// InterchainProposalSenderABI is the parsed InterchainProposalSenderABIJSON.
	InterchainProposalSenderABI = mustParseABI(InterchainProposalSenderABIJSON)

	// InterchainProposalExecutorABI is the union of ExecutableABIJSON and InterchainProposalExecutorABIJSON.
	InterchainProposalExecutorABI = mustParseABI(mergeABIJSON(ExecutableABIJSON, InterchainProposalExecutorABIJSON))

	// PayloadReceiverMockABI is the parsed PayloadReceiverMockABIJSON.
	PayloadReceiverMockABI = mustParseABI(PayloadReceiverMockABIJSON)
)

// mustParseABI parses an ABI definition, panicking if it is malformed.
func mustParseABI(definition string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return &parsed
}

// mergeABIJSON concatenates the entries of multiple JSON ABI arrays into one.
func mergeABIJSON(definitions ...string) string {
	entries := make([]string, 0, len(definitions))
	for _, definition := range definitions {
		definition = strings.TrimSpace(definition)
		entries = append(entries, strings.TrimSpace(definition[1:len(definition)-1]))
	}
	return "[" + strings.Join(entries, ",") + "]"
}
