package contract

import "github.com/ethereum/go-ethereum/accounts/abi/bind"

// EstateFlowMetaData holds the ABI of the deployed EstateFlow registry.
var EstateFlowMetaData = &bind.MetaData{
	ABI: `[
	{"type":"function","name":"createEstateFlowRequest","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"propertyName","type":"string"},
		{"name":"loanAmount","type":"uint256"},
		{"name":"description","type":"string"},
		{"name":"collateralType","type":"string"},
		{"name":"loanTerm","type":"uint256"},
		{"name":"yieldPreference","type":"uint256"},
		{"name":"imageHash","type":"string"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getRequest","stateMutability":"view",
	 "inputs":[{"name":"requestId","type":"uint256"}],
	 "outputs":[{"name":"","type":"tuple","components":[
		{"name":"id","type":"uint256"},
		{"name":"creator","type":"address"},
		{"name":"propertyName","type":"string"},
		{"name":"loanAmount","type":"uint256"},
		{"name":"description","type":"string"},
		{"name":"collateralType","type":"string"},
		{"name":"loanTerm","type":"uint256"},
		{"name":"yieldPreference","type":"uint256"},
		{"name":"imageHash","type":"string"},
		{"name":"createdAt","type":"uint256"},
		{"name":"status","type":"uint8"}]}]},
	{"type":"function","name":"getUserRequests","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"getTotalRequests","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"updateRequestStatus","stateMutability":"nonpayable",
	 "inputs":[{"name":"requestId","type":"uint256"},{"name":"newStatus","type":"uint8"}],
	 "outputs":[]},
	{"type":"function","name":"owner","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"EstateFlowRequestCreated","anonymous":false,
	 "inputs":[
		{"name":"requestId","type":"uint256","indexed":true},
		{"name":"creator","type":"address","indexed":true},
		{"name":"propertyName","type":"string","indexed":false},
		{"name":"loanAmount","type":"uint256","indexed":false},
		{"name":"timestamp","type":"uint256","indexed":false}]},
	{"type":"event","name":"RequestStatusUpdated","anonymous":false,
	 "inputs":[
		{"name":"requestId","type":"uint256","indexed":true},
		{"name":"oldStatus","type":"uint8","indexed":false},
		{"name":"newStatus","type":"uint8","indexed":false},
		{"name":"timestamp","type":"uint256","indexed":false}]}
]`,
}
