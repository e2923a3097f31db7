package transaction

// Type tags a transaction with the operation it performs. The zero value
// marks a call the wallet does not recognise.
type Type string

const (
	Transfer      Type = "TRANSFER"
	AssetTransfer Type = "ASSET_TRANSFER"
	OrmlTransfer  Type = "ORML_TRANSFER"

	XcmLimitedTransfer         Type = "XCM_LIMITED_TRANSFER"
	XcmTeleport                Type = "XCM_TELEPORT"
	PolkadotXcmLimitedTransfer Type = "POLKADOT_XCM_LIMITED_TRANSFER"
	PolkadotXcmTeleport        Type = "POLKADOT_XCM_TELEPORT"
	XTokensTransferMultiasset  Type = "XTOKENS_TRANSFER_MULTIASSET"

	Bond        Type = "BOND"
	Unstake     Type = "UNSTAKE"
	Restake     Type = "RESTAKE"
	Redeem      Type = "REDEEM"
	Nominate    Type = "NOMINATE"
	StakeMore   Type = "STAKE_MORE"
	Destination Type = "DESTINATION"
	Chill       Type = "CHILL"

	AddProxy        Type = "ADD_PROXY"
	RemoveProxy     Type = "REMOVE_PROXY"
	CreatePureProxy Type = "CREATE_PURE_PROXY"
	RemovePureProxy Type = "REMOVE_PURE_PROXY"
	Proxy           Type = "PROXY"

	MultisigAsMulti        Type = "MULTISIG_AS_MULTI"
	MultisigApproveAsMulti Type = "MULTISIG_APPROVE_AS_MULTI"
	MultisigCancelAsMulti  Type = "MULTISIG_CANCEL_AS_MULTI"

	Vote       Type = "VOTE"
	Revote     Type = "REVOTE"
	RemoveVote Type = "REMOVE_VOTE"
	Delegate   Type = "DELEGATE"
	Undelegate Type = "UNDELEGATE"
	Unlock     Type = "UNLOCK"

	BatchAll       Type = "BATCH_ALL"
	CollectiveVote Type = "COLLECTIVE_VOTE"
)

var allTypes = []Type{
	Transfer, AssetTransfer, OrmlTransfer,
	XcmLimitedTransfer, XcmTeleport, PolkadotXcmLimitedTransfer, PolkadotXcmTeleport, XTokensTransferMultiasset,
	Bond, Unstake, Restake, Redeem, Nominate, StakeMore, Destination, Chill,
	AddProxy, RemoveProxy, CreatePureProxy, RemovePureProxy, Proxy,
	MultisigAsMulti, MultisigApproveAsMulti, MultisigCancelAsMulti,
	Vote, Revote, RemoveVote, Delegate, Undelegate, Unlock,
	BatchAll, CollectiveVote,
}

// Types lists every known transaction type.
func Types() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	for _, known := range allTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsXcm reports whether t moves assets to another chain.
func (t Type) IsXcm() bool {
	switch t {
	case XcmLimitedTransfer, XcmTeleport, PolkadotXcmLimitedTransfer, PolkadotXcmTeleport, XTokensTransferMultiasset:
		return true
	}
	return false
}

// IsMultisig reports whether t is a multisig pallet operation.
func (t Type) IsMultisig() bool {
	switch t {
	case MultisigAsMulti, MultisigApproveAsMulti, MultisigCancelAsMulti:
		return true
	}
	return false
}

// IsWrapper reports whether t carries another transaction.
func (t Type) IsWrapper() bool {
	return t == Proxy || t == BatchAll || t.IsMultisig()
}
