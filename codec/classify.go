package codec

import (
	"strings"

	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

const collectiveSuffix = "Collective"

// Section and method names of the calls the wallet builds.
const (
	sectionBalances         = "balances"
	sectionAssets           = "assets"
	sectionTokens           = "tokens"
	sectionCurrencies       = "currencies"
	sectionXcmPallet        = "xcmPallet"
	sectionPolkadotXcm      = "polkadotXcm"
	sectionXTokens          = "xTokens"
	sectionStaking          = "staking"
	sectionProxy            = "proxy"
	sectionMultisig         = "multisig"
	sectionConvictionVoting = "convictionVoting"
	sectionUtility          = "utility"

	methodTransfer           = "transfer"
	methodTransferKeepAlive  = "transferKeepAlive"
	methodTransferAllowDeath = "transferAllowDeath"
	methodLimitedReserve     = "limitedReserveTransferAssets"
	methodLimitedTeleport    = "limitedTeleportAssets"
	methodAsMulti            = "asMulti"
	methodApproveAsMulti     = "approveAsMulti"
	methodCancelAsMulti      = "cancelAsMulti"
	methodVote               = "vote"
)

type callName struct {
	section, method string
}

var classification = map[callName]transaction.Type{
	{sectionBalances, methodTransfer}:           transaction.Transfer,
	{sectionBalances, methodTransferKeepAlive}:  transaction.Transfer,
	{sectionBalances, methodTransferAllowDeath}: transaction.Transfer,
	{sectionAssets, methodTransfer}:             transaction.AssetTransfer,
	{sectionAssets, methodTransferKeepAlive}:    transaction.AssetTransfer,
	{sectionTokens, methodTransfer}:             transaction.OrmlTransfer,
	{sectionCurrencies, methodTransfer}:         transaction.OrmlTransfer,

	{sectionXcmPallet, methodLimitedReserve}:    transaction.XcmLimitedTransfer,
	{sectionXcmPallet, methodLimitedTeleport}:   transaction.XcmTeleport,
	{sectionPolkadotXcm, methodLimitedReserve}:  transaction.PolkadotXcmLimitedTransfer,
	{sectionPolkadotXcm, methodLimitedTeleport}: transaction.PolkadotXcmTeleport,
	{sectionXTokens, "transferMultiasset"}:      transaction.XTokensTransferMultiasset,

	{sectionStaking, "bond"}:             transaction.Bond,
	{sectionStaking, "unbond"}:           transaction.Unstake,
	{sectionStaking, "rebond"}:           transaction.Restake,
	{sectionStaking, "withdrawUnbonded"}: transaction.Redeem,
	{sectionStaking, "nominate"}:         transaction.Nominate,
	{sectionStaking, "bondExtra"}:        transaction.StakeMore,
	{sectionStaking, "setPayee"}:         transaction.Destination,
	{sectionStaking, "chill"}:            transaction.Chill,

	{sectionProxy, "addProxy"}:    transaction.AddProxy,
	{sectionProxy, "removeProxy"}: transaction.RemoveProxy,
	{sectionProxy, "createPure"}:  transaction.CreatePureProxy,
	{sectionProxy, "killPure"}:    transaction.RemovePureProxy,
	{sectionProxy, "proxy"}:       transaction.Proxy,

	{sectionMultisig, methodAsMulti}:        transaction.MultisigAsMulti,
	{sectionMultisig, methodApproveAsMulti}: transaction.MultisigApproveAsMulti,
	{sectionMultisig, methodCancelAsMulti}:  transaction.MultisigCancelAsMulti,

	{sectionConvictionVoting, methodVote}:   transaction.Vote,
	{sectionConvictionVoting, "removeVote"}: transaction.RemoveVote,
	{sectionConvictionVoting, "delegate"}:   transaction.Delegate,
	{sectionConvictionVoting, "undelegate"}: transaction.Undelegate,
	{sectionConvictionVoting, "unlock"}:     transaction.Unlock,

	{sectionUtility, "batchAll"}: transaction.BatchAll,
}

// Classify returns the transaction type of section.method. Collective
// pallets ("fellowshipCollective", "technicalCollective", ...) classify their
// vote call as COLLECTIVE_VOTE and report the stripped prefix.
func Classify(section, method string) (t transaction.Type, collective string) {
	if t, ok := classification[callName{section, method}]; ok {
		return t, ""
	}
	if prefix, ok := strings.CutSuffix(section, collectiveSuffix); ok && prefix != "" && method == methodVote {
		return transaction.CollectiveVote, prefix
	}
	return "", ""
}
