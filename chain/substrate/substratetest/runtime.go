// Package substratetest provides hand-built runtimes for tests that need a
// ledger context without a node.
package substratetest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
)

// SS58Format is the address format of the test runtimes (Polkadot).
const SS58Format = 0

// Pallet indices of the test runtimes.
const (
	SystemIndex               = 0
	BalancesIndex             = 5
	StakingIndex              = 7
	ConvictionVotingIndex     = 20
	UtilityIndex              = 26
	ProxyIndex                = 29
	MultisigIndex             = 30
	PolkadotXcmIndex          = 31
	AssetsIndex               = 50
	TokensIndex               = 51
	CurrenciesIndex           = 52
	XTokensIndex              = 54
	FellowshipCollectiveIndex = 60
	XcmPalletIndex            = 99
)

// Runtime returns a runtime with the current call shapes.
func Runtime(t testing.TB) *substrate.Runtime {
	t.Helper()
	rt, err := NewRuntime(false)
	require.NoError(t, err)
	return rt
}

// LegacyRuntime returns a runtime with older call shapes: no keep-alive
// transfer, bond with controller, six-argument asMulti with scalar weights,
// xTokens with destWeight and tokens without currencies.
func LegacyRuntime(t testing.TB) *substrate.Runtime {
	t.Helper()
	rt, err := NewRuntime(true)
	require.NoError(t, err)
	return rt
}

// AccountID returns a deterministic 32-byte account id for a name.
func AccountID(name string) []byte {
	h := blake2b.Sum256([]byte(name))
	return h[:]
}

// Address returns the SS58 address of AccountID(name) in the test format.
func Address(t testing.TB, name string) string {
	t.Helper()
	addr, err := substrate.EncodeAddressSS58(AccountID(name), SS58Format)
	require.NoError(t, err)
	return addr
}

// NewRuntime builds the test runtime.
func NewRuntime(legacy bool) (*substrate.Runtime, error) {
	b := substrate.NewRegistryBuilder().WithEventRecords()
	named := substrate.NamedField
	variant := substrate.NewVariant
	unnamed := func(t substrate.TypeID) substrate.Field { return substrate.Field{Type: t} }

	var (
		boolean = b.Primitive(substrate.Bool)
		u8      = b.Primitive(substrate.U8)
		u16     = b.Primitive(substrate.U16)
		u32     = b.Primitive(substrate.U32)
		u64     = b.Primitive(substrate.U64)
		u128    = b.Primitive(substrate.U128)
		cu32    = b.Compact(u32)
		cu64    = b.Compact(u64)
		cu128   = b.Compact(u128)
		bytes   = b.Sequence(u8)
		hash    = b.Array(32, u8)
		call    = b.CallType()
	)

	accountID := b.Composite("sp_core::crypto::AccountId32", unnamed(hash))
	multiAddress := b.Enum("sp_runtime::multiaddress::MultiAddress",
		variant("Id", 0, unnamed(accountID)),
		variant("Index", 1, unnamed(cu32)),
		variant("Raw", 2, unnamed(bytes)),
		variant("Address32", 3, unnamed(hash)),
		variant("Address20", 4, unnamed(b.Array(20, u8))),
	)
	weight := b.Composite("sp_weights::weight_v2::Weight",
		named("ref_time", cu64),
		named("proof_size", cu64),
	)
	timepoint := b.Composite("pallet_multisig::Timepoint",
		named("height", u32),
		named("index", u32),
	)
	proxyType := b.Enum("polkadot_runtime::ProxyType",
		variant("Any", 0),
		variant("NonTransfer", 1),
		variant("Governance", 2),
		variant("Staking", 3),
		variant("CancelProxy", 6),
		variant("Auction", 7),
		variant("NominationPools", 8),
	)
	payee := b.Enum("pallet_staking::RewardDestination",
		variant("Staked", 0),
		variant("Stash", 1),
		variant("Controller", 2),
		variant("Account", 3, unnamed(accountID)),
		variant("None", 4),
	)
	conviction := b.Enum("pallet_conviction_voting::conviction::Conviction",
		variant("None", 0),
		variant("Locked1x", 1),
		variant("Locked2x", 2),
		variant("Locked3x", 3),
		variant("Locked4x", 4),
		variant("Locked5x", 5),
		variant("Locked6x", 6),
	)
	vote := b.Composite("pallet_conviction_voting::vote::Vote", unnamed(u8))
	accountVote := b.Enum("pallet_conviction_voting::vote::AccountVote",
		variant("Standard", 0, named("vote", vote), named("balance", u128)),
		variant("Split", 1, named("aye", u128), named("nay", u128)),
		variant("SplitAbstain", 2, named("aye", u128), named("nay", u128), named("abstain", u128)),
	)

	// xcm
	networkID := b.Enum("staging_xcm::v3::junction::NetworkId",
		variant("ByGenesis", 0, unnamed(hash)),
		variant("Polkadot", 2),
		variant("Kusama", 3),
	)
	junction := b.Enum("staging_xcm::v3::junction::Junction",
		variant("Parachain", 0, unnamed(cu32)),
		variant("AccountId32", 1, named("network", b.Option(networkID)), named("id", hash)),
		variant("AccountKey20", 3, named("network", b.Option(networkID)), named("key", b.Array(20, u8))),
		variant("PalletInstance", 4, unnamed(u8)),
		variant("GeneralIndex", 5, unnamed(cu128)),
	)
	junctionsV3 := b.Enum("staging_xcm::v3::junctions::Junctions",
		variant("Here", 0),
		variant("X1", 1, unnamed(junction)),
		variant("X2", 2, unnamed(junction), unnamed(junction)),
		variant("X3", 3, unnamed(junction), unnamed(junction), unnamed(junction)),
	)
	junctionsV4 := b.Enum("staging_xcm::v4::junctions::Junctions",
		variant("Here", 0),
		variant("X1", 1, unnamed(b.Array(1, junction))),
		variant("X2", 2, unnamed(b.Array(2, junction))),
		variant("X3", 3, unnamed(b.Array(3, junction))),
	)
	locationV3 := b.Composite("staging_xcm::v3::multilocation::MultiLocation",
		named("parents", u8),
		named("interior", junctionsV3),
	)
	locationV4 := b.Composite("staging_xcm::v4::location::Location",
		named("parents", u8),
		named("interior", junctionsV4),
	)
	versionedLocation := b.Enum("xcm::VersionedLocation",
		variant("V3", 3, unnamed(locationV3)),
		variant("V4", 4, unnamed(locationV4)),
	)
	fungibility := b.Enum("xcm::v3::multiasset::Fungibility",
		variant("Fungible", 0, unnamed(cu128)),
		variant("NonFungible", 1, unnamed(b.Enum("xcm::v3::multiasset::AssetInstance", variant("Undefined", 0)))),
	)
	assetIDV3 := b.Enum("xcm::v3::multiasset::AssetId",
		variant("Concrete", 0, unnamed(locationV3)),
		variant("Abstract", 1, unnamed(hash)),
	)
	assetV3 := b.Composite("xcm::v3::multiasset::MultiAsset", named("id", assetIDV3), named("fun", fungibility))
	assetV4 := b.Composite("staging_xcm::v4::asset::Asset",
		named("id", b.Composite("staging_xcm::v4::asset::AssetId", unnamed(locationV4))),
		named("fun", fungibility),
	)
	versionedAssets := b.Enum("xcm::VersionedAssets",
		variant("V3", 3, unnamed(b.Sequence(assetV3))),
		variant("V4", 4, unnamed(b.Sequence(assetV4))),
	)
	versionedAsset := b.Enum("xcm::VersionedAsset",
		variant("V3", 3, unnamed(assetV3)),
		variant("V4", 4, unnamed(assetV4)),
	)
	weightLimit := b.Enum("xcm::v3::WeightLimit",
		variant("Unlimited", 0),
		variant("Limited", 1, unnamed(weight)),
	)
	xcmTransfer := func(name string, index uint8) substrate.Variant {
		return variant(name, index,
			named("dest", versionedLocation),
			named("beneficiary", versionedLocation),
			named("assets", versionedAssets),
			named("fee_asset_item", u32),
			named("weight_limit", weightLimit),
		)
	}

	// orml
	tokenSymbol := b.Enum("acala_primitives::currency::TokenSymbol",
		variant("ACA", 0),
		variant("AUSD", 1),
		variant("DOT", 2),
		variant("LDOT", 3),
	)
	currencyID := b.Enum("acala_primitives::currency::CurrencyId",
		variant("Token", 0, unnamed(tokenSymbol)),
		variant("ForeignAsset", 5, unnamed(u16)),
		variant("StableAssetPoolToken", 6, unnamed(u32)),
	)

	// dispatch outcome types
	moduleError := b.Composite("sp_runtime::ModuleError", named("index", u8), named("error", b.Array(4, u8)))
	tokenError := b.Enum("sp_runtime::TokenError",
		variant("FundsUnavailable", 0),
		variant("OnlyProvider", 1),
		variant("BelowMinimum", 2),
		variant("CannotCreate", 3),
		variant("UnknownAsset", 4),
		variant("Frozen", 5),
	)
	arithmeticError := b.Enum("sp_arithmetic::ArithmeticError",
		variant("Underflow", 0),
		variant("Overflow", 1),
		variant("DivisionByZero", 2),
	)
	dispatchError := b.Enum("sp_runtime::DispatchError",
		variant("Other", 0),
		variant("CannotLookup", 1),
		variant("BadOrigin", 2),
		variant("Module", 3, unnamed(moduleError)),
		variant("ConsumerRemaining", 4),
		variant("NoProviders", 5),
		variant("TooManyConsumers", 6),
		variant("Token", 7, unnamed(tokenError)),
		variant("Arithmetic", 8, unnamed(arithmeticError)),
	)
	dispatchInfo := b.Composite("frame_support::dispatch::DispatchInfo",
		named("weight", weight),
		named("class", b.Enum("frame_support::dispatch::DispatchClass",
			variant("Normal", 0), variant("Operational", 1), variant("Mandatory", 2))),
		named("pays_fee", b.Enum("frame_support::dispatch::Pays", variant("Yes", 0), variant("No", 1))),
	)
	dispatchResult := b.Enum("Result",
		variant("Ok", 0, unnamed(b.Tuple())),
		variant("Err", 1, unnamed(dispatchError)),
	)

	// pallets
	b.Pallet("System", SystemIndex,
		[]substrate.Variant{
			variant("remark", 0, named("remark", bytes)),
			variant("remark_with_event", 7, named("remark", bytes)),
		},
		[]substrate.Variant{
			variant("ExtrinsicSuccess", 0, named("dispatch_info", dispatchInfo)),
			variant("ExtrinsicFailed", 1, named("dispatch_error", dispatchError), named("dispatch_info", dispatchInfo)),
			variant("NewAccount", 3, named("account", accountID)),
		},
		[]substrate.Variant{
			variant("InvalidSpecName", 0),
			variant("SpecVersionNeedsToIncrease", 1),
			variant("FailedToExtractRuntimeVersion", 2),
			variant("NonDefaultComposite", 3),
		},
	)
	b.Constant("System", "SS58Prefix", u16, []byte{SS58Format, 0})

	balanceCalls := []substrate.Variant{
		variant("transfer_allow_death", 0, named("dest", multiAddress), named("value", cu128)),
		variant("transfer_keep_alive", 3, named("dest", multiAddress), named("value", cu128)),
		variant("transfer_all", 4, named("dest", multiAddress), named("keep_alive", boolean)),
	}
	if legacy {
		balanceCalls = []substrate.Variant{
			variant("transfer", 0, named("dest", multiAddress), named("value", cu128)),
			variant("transfer_all", 4, named("dest", multiAddress), named("keep_alive", boolean)),
		}
	}
	b.Pallet("Balances", BalancesIndex, balanceCalls,
		[]substrate.Variant{
			variant("Transfer", 2, named("from", accountID), named("to", accountID), named("amount", u128)),
		},
		[]substrate.Variant{
			variant("VestingBalance", 0),
			variant("LiquidityRestrictions", 1),
			variant("InsufficientBalance", 2),
			variant("ExistentialDeposit", 3),
			variant("Expendability", 4),
			variant("ExistingVestingSchedule", 5),
			variant("DeadAccount", 6),
			variant("TooManyReserves", 7),
		},
	)

	bond := variant("bond", 0, named("value", cu128), named("payee", payee))
	if legacy {
		bond = variant("bond", 0, named("controller", multiAddress), named("value", cu128), named("payee", payee))
	}
	b.Pallet("Staking", StakingIndex,
		[]substrate.Variant{
			bond,
			variant("bond_extra", 1, named("max_additional", cu128)),
			variant("unbond", 2, named("value", cu128)),
			variant("withdraw_unbonded", 3, named("num_slashing_spans", u32)),
			variant("nominate", 5, named("targets", b.Sequence(multiAddress))),
			variant("chill", 6),
			variant("set_payee", 7, named("payee", payee)),
			variant("rebond", 19, named("value", cu128)),
		},
		nil,
		[]substrate.Variant{
			variant("NotController", 0),
			variant("NotStash", 1),
			variant("AlreadyBonded", 2),
			variant("AlreadyPaired", 3),
			variant("EmptyTargets", 4),
			variant("InsufficientBond", 23),
		},
	)

	b.Pallet("ConvictionVoting", ConvictionVotingIndex,
		[]substrate.Variant{
			variant("vote", 0, named("poll_index", cu32), named("vote", accountVote)),
			variant("delegate", 1, named("class", u16), named("to", multiAddress), named("conviction", conviction), named("balance", u128)),
			variant("undelegate", 2, named("class", u16)),
			variant("unlock", 3, named("class", u16), named("target", multiAddress)),
			variant("remove_vote", 4, named("class", b.Option(u16)), named("index", u32)),
		},
		nil,
		[]substrate.Variant{
			variant("NotOngoing", 0),
			variant("NotVoter", 1),
			variant("NoPermission", 2),
			variant("AlreadyDelegating", 6),
			variant("InsufficientFunds", 7),
		},
	)

	b.Pallet("Utility", UtilityIndex,
		[]substrate.Variant{
			variant("batch", 0, named("calls", b.Sequence(call))),
			variant("batch_all", 2, named("calls", b.Sequence(call))),
		},
		[]substrate.Variant{
			variant("BatchCompleted", 1),
		},
		[]substrate.Variant{
			variant("TooManyCalls", 0),
		},
	)

	b.Pallet("Proxy", ProxyIndex,
		[]substrate.Variant{
			variant("proxy", 0, named("real", multiAddress), named("force_proxy_type", b.Option(proxyType)), named("call", call)),
			variant("add_proxy", 1, named("delegate", multiAddress), named("proxy_type", proxyType), named("delay", u32)),
			variant("remove_proxy", 2, named("delegate", multiAddress), named("proxy_type", proxyType), named("delay", u32)),
			variant("create_pure", 4, named("proxy_type", proxyType), named("delay", u32), named("index", u16)),
			variant("kill_pure", 5,
				named("spawner", multiAddress),
				named("proxy_type", proxyType),
				named("index", u16),
				named("height", cu32),
				named("ext_index", cu32),
			),
		},
		[]substrate.Variant{
			variant("ProxyExecuted", 0, named("result", dispatchResult)),
		},
		[]substrate.Variant{
			variant("TooMany", 0),
			variant("NotFound", 1),
			variant("NotProxy", 2),
			variant("Unproxyable", 3),
			variant("Duplicate", 4),
			variant("NoPermission", 5),
			variant("Unannounced", 6),
			variant("NoSelfProxy", 7),
		},
	)

	signatories := b.Sequence(accountID)
	multisigCalls := []substrate.Variant{
		variant("as_multi", 1,
			named("threshold", u16),
			named("other_signatories", signatories),
			named("maybe_timepoint", b.Option(timepoint)),
			named("call", call),
			named("max_weight", weight),
		),
		variant("approve_as_multi", 2,
			named("threshold", u16),
			named("other_signatories", signatories),
			named("maybe_timepoint", b.Option(timepoint)),
			named("call_hash", hash),
			named("max_weight", weight),
		),
	}
	if legacy {
		multisigCalls = []substrate.Variant{
			variant("as_multi", 1,
				named("threshold", u16),
				named("other_signatories", signatories),
				named("maybe_timepoint", b.Option(timepoint)),
				named("call", bytes),
				named("store_call", boolean),
				named("max_weight", u64),
			),
			variant("approve_as_multi", 2,
				named("threshold", u16),
				named("other_signatories", signatories),
				named("maybe_timepoint", b.Option(timepoint)),
				named("call_hash", hash),
				named("max_weight", u64),
			),
		}
	}
	multisigCalls = append(multisigCalls, variant("cancel_as_multi", 3,
		named("threshold", u16),
		named("other_signatories", signatories),
		named("timepoint", timepoint),
		named("call_hash", hash),
	))
	b.Pallet("Multisig", MultisigIndex, multisigCalls,
		[]substrate.Variant{
			variant("NewMultisig", 0, named("approving", accountID), named("multisig", accountID), named("call_hash", hash)),
			variant("MultisigApproval", 1, named("approving", accountID), named("timepoint", timepoint), named("multisig", accountID), named("call_hash", hash)),
			variant("MultisigExecuted", 2,
				named("approving", accountID),
				named("timepoint", timepoint),
				named("multisig", accountID),
				named("call_hash", hash),
				named("result", dispatchResult),
			),
		},
		[]substrate.Variant{
			variant("MinimumThreshold", 0),
			variant("AlreadyApproved", 1),
			variant("NoApprovalsNeeded", 2),
			variant("TooFewSignatories", 3),
			variant("TooManySignatories", 4),
			variant("SignatoriesOutOfOrder", 5),
			variant("SenderInSignatories", 6),
			variant("NotFound", 7),
			variant("NotOwner", 8),
			variant("NoTimepoint", 9),
			variant("WrongTimepoint", 10),
			variant("UnexpectedTimepoint", 11),
			variant("MaxWeightTooLow", 12),
			variant("AlreadyStored", 13),
		},
	)

	b.Pallet("PolkadotXcm", PolkadotXcmIndex,
		[]substrate.Variant{
			xcmTransfer("limited_reserve_transfer_assets", 8),
			xcmTransfer("limited_teleport_assets", 9),
		},
		nil, nil,
	)
	b.Pallet("XcmPallet", XcmPalletIndex,
		[]substrate.Variant{
			xcmTransfer("limited_reserve_transfer_assets", 8),
			xcmTransfer("limited_teleport_assets", 9),
		},
		nil, nil,
	)

	assetTransfer := func(name string, index uint8) substrate.Variant {
		return variant(name, index, named("id", cu32), named("target", multiAddress), named("amount", cu128))
	}
	assetCalls := []substrate.Variant{assetTransfer("transfer", 8), assetTransfer("transfer_keep_alive", 9)}
	if legacy {
		assetCalls = assetCalls[:1]
	}
	b.Pallet("Assets", AssetsIndex, assetCalls, nil, nil)

	ormlTransfer := variant("transfer", 0, named("dest", multiAddress), named("currency_id", currencyID), named("amount", cu128))
	b.Pallet("Tokens", TokensIndex, []substrate.Variant{ormlTransfer}, nil, nil)
	if !legacy {
		b.Pallet("Currencies", CurrenciesIndex, []substrate.Variant{ormlTransfer}, nil, nil)
	}

	xTokensTransfer := variant("transfer_multiasset", 1,
		named("asset", versionedAsset),
		named("dest", versionedLocation),
		named("dest_weight_limit", weightLimit),
	)
	if legacy {
		xTokensTransfer = variant("transfer_multiasset", 1,
			named("asset", versionedAsset),
			named("dest", versionedLocation),
			named("dest_weight", u64),
		)
	}
	b.Pallet("XTokens", XTokensIndex, []substrate.Variant{xTokensTransfer}, nil, nil)

	b.Pallet("FellowshipCollective", FellowshipCollectiveIndex,
		[]substrate.Variant{
			variant("vote", 5, named("poll", u32), named("aye", boolean)),
		},
		nil, nil,
	)

	exts := []string{
		"CheckNonZeroSender",
		"CheckSpecVersion",
		"CheckTxVersion",
		"CheckGenesis",
		"CheckMortality",
		"CheckNonce",
		"CheckWeight",
		"ChargeTransactionPayment",
	}
	if !legacy {
		exts = append(exts, "CheckMetadataHash")
	}
	b.Extensions(exts...)

	reg, err := b.Build()
	if err != nil {
		return nil, err
	}
	return substrate.NewRuntime(reg, SS58Format), nil
}
