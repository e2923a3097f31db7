package transaction

var titles = map[Type]string{
	Transfer:                   "Transfer",
	AssetTransfer:              "Transfer",
	OrmlTransfer:               "Transfer",
	XcmLimitedTransfer:         "Cross chain transfer",
	XcmTeleport:                "Cross chain transfer",
	PolkadotXcmLimitedTransfer: "Cross chain transfer",
	PolkadotXcmTeleport:        "Cross chain transfer",
	XTokensTransferMultiasset:  "Cross chain transfer",
	Bond:                       "Start staking",
	Unstake:                    "Unstake",
	Restake:                    "Return to stake",
	Redeem:                     "Redeem",
	Nominate:                   "Select validators",
	StakeMore:                  "Stake more",
	Destination:                "Change rewards destination",
	Chill:                      "Stop staking",
	AddProxy:                   "Add delegated authority",
	RemoveProxy:                "Remove delegated authority",
	CreatePureProxy:            "Create pure proxy",
	RemovePureProxy:            "Remove pure proxy",
	Proxy:                      "Proxy",
	MultisigAsMulti:            "Approve multisig",
	MultisigApproveAsMulti:     "Approve multisig",
	MultisigCancelAsMulti:      "Reject multisig",
	Vote:                       "Vote",
	Revote:                     "Revote",
	RemoveVote:                 "Remove vote",
	Delegate:                   "Delegate",
	Undelegate:                 "Undelegate",
	Unlock:                     "Unlock",
	BatchAll:                   "Batch",
	CollectiveVote:             "Fellowship vote",
}

// Title is the display name of a transaction type.
func Title(t Type) string {
	if title, ok := titles[t]; ok {
		return title
	}
	return "Unknown operation"
}

// DecodedTitle names a decoded call, falling back to section.method for
// calls the wallet does not recognise.
func DecodedTitle(d DecodedTransaction) string {
	if d.Known() {
		return Title(d.Type)
	}
	if d.Section == "" {
		return Title("")
	}
	return d.Section + "." + d.Method
}
