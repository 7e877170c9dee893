package constants

import "time"

const (
	AppName      = "estateflow"
	RequestsFile = "estate-flow-requests.json"

	// StorageKey names the single JSON array the request cache lives under,
	// whatever the backend.
	StorageKey = "estate-flow-requests"

	FilePerm      = 0o600
	DirectoryPerm = 0o700
)

// EstateFlow defaults
const (
	DefaultNetwork         = "sepolia"
	DefaultChainIDHex      = "0xaa36a7"
	DefaultContractAddress = "0x4e37558d4DFA9c8526724C4c37a5461Ee3720f04"

	DefaultTotalProofs         = 6
	DefaultReceiptPollInterval = 4 * time.Second
	DefaultDetectTimeout       = 5 * time.Second

	PlaceholderImage     = "/placeholder-property.jpg"
	PlaceholderImageHash = "ipfs://placeholder-hash"
	DemoImageHashPrefix  = "ipfs://demo-hash-"
	BlockchainIDPrefix   = "blockchain_"
)

// Wallet session messages
const (
	SessionNotDetectedText      = "Wallet not detected. Please install it."
	SessionRejectedText         = "Connection rejected by user"
	SessionRequestPendingText   = "Connection request already pending"
	SessionNoAccountsText       = "No accounts found"
	SessionConnectFailedText    = "Failed to connect wallet"
	SessionConnectWalletFirst   = "Please connect your wallet first"
	SessionWalletNotDetectedTxt = "Wallet not detected"
)

// Network guarantor messages
const (
	NetworkCheckFailedText  = "Failed to check network"
	NetworkSwitchFailedText = "Failed to switch to %s network"
	NetworkAddFailedText    = "Failed to add %s network"
)

// Submission messages
const (
	SubmitMissingFieldsText    = "Please fill in all required fields"
	SubmitRejectedText         = "Transaction rejected by user"
	SubmitInternalRPCErrorText = "Internal JSON-RPC error"
	SubmitFailedText           = "Transaction failed"
	SubmitRevertedText         = "Transaction reverted"
	SubmitInProgressText       = "Submission already in progress"
)
