package etherman

// FederationABI is the interface of the on-chain federation contract.
// Membership management and the event subscriptions live with the
// EVM-side counterpart; the coordinator only needs the entries below.
const FederationABI = `[
	{"type":"function","name":"getTransactionId","stateMutability":"view",
	 "inputs":[{"name":"originalTokenAddress","type":"address"},{"name":"sender","type":"string"},{"name":"receiver","type":"string"},{"name":"value","type":"uint256"},{"name":"transactionHash","type":"bytes32"},{"name":"flow","type":"uint8"}],
	 "outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"isProposed","stateMutability":"view",
	 "inputs":[{"name":"transactionId","type":"bytes32"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isSigned","stateMutability":"view",
	 "inputs":[{"name":"transactionId","type":"bytes32"},{"name":"member","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isProcessed","stateMutability":"view",
	 "inputs":[{"name":"transactionId","type":"bytes32"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getSignatureCount","stateMutability":"view",
	 "inputs":[{"name":"transactionId","type":"bytes32"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getSignatures","stateMutability":"view",
	 "inputs":[{"name":"transactionId","type":"bytes32"}],
	 "outputs":[{"name":"txHex","type":"string"},{"name":"signatures","type":"string[]"}]},
	{"type":"function","name":"getMemberIndex","stateMutability":"view",
	 "inputs":[{"name":"member","type":"address"}],
	 "outputs":[{"name":"","type":"int256"}]},
	{"type":"function","name":"tokenLimit","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"sendTransactionProposal","stateMutability":"nonpayable",
	 "inputs":[{"name":"transactionId","type":"bytes32"},{"name":"txHex","type":"string"}],
	 "outputs":[]},
	{"type":"function","name":"updateSignatureState","stateMutability":"nonpayable",
	 "inputs":[{"name":"transactionId","type":"bytes32"},{"name":"member","type":"address"},{"name":"signature","type":"string"}],
	 "outputs":[]},
	{"type":"function","name":"updateTransactionState","stateMutability":"nonpayable",
	 "inputs":[{"name":"transactionId","type":"bytes32"}],
	 "outputs":[]},
	{"type":"function","name":"voteTransaction","stateMutability":"nonpayable",
	 "inputs":[{"name":"originalTokenAddress","type":"address"},{"name":"sender","type":"string"},{"name":"receiver","type":"string"},{"name":"value","type":"uint256"},{"name":"transactionHash","type":"bytes32"},{"name":"flow","type":"uint8"},{"name":"transactionId","type":"bytes32"}],
	 "outputs":[]},
	{"type":"event","name":"TransactionProposed","anonymous":false,
	 "inputs":[{"name":"transactionId","type":"bytes32","indexed":true},{"name":"txHex","type":"string","indexed":false}]},
	{"type":"event","name":"ProposalSigned","anonymous":false,
	 "inputs":[{"name":"transactionId","type":"bytes32","indexed":true},{"name":"member","type":"address","indexed":true},{"name":"signature","type":"string","indexed":false}]},
	{"type":"event","name":"ProposalSent","anonymous":false,
	 "inputs":[{"name":"transactionId","type":"bytes32","indexed":true}]}
]`
