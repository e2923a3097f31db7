package codec

import (
	"fmt"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

// Wallet argument names that are not shared with the wrapper resolver.
const (
	argDest             = "dest"
	argValue            = "value"
	argAsset            = "asset"
	argAssets           = "assets"
	argBeneficiary      = "beneficiary"
	argFeeAssetItem     = "feeAssetItem"
	argWeightLimit      = "weightLimit"
	argDestWeight       = "destWeight"
	argDestWeightLimit  = "destWeightLimit"
	argDestinationChain = "destinationChain"
	argController       = "controller"
	argMaxAdditional    = "maxAdditional"
	argNumSlashingSpans = "numSlashingSpans"
	argTargets          = "targets"
	argDelegate         = "delegate"
	argProxyType        = "proxyType"
	argDelay            = "delay"
	argIndex            = "index"
	argSpawner          = "spawner"
	argBlockNumber      = "blockNumber"
	argExtrinsicIndex   = "extrinsicIndex"
	argReferendum       = "referendum"
	argTrack            = "track"
	argTarget           = "target"
	argConviction       = "conviction"
	argBalance          = "balance"
	argPallet           = "pallet"
	argPoll             = "poll"
	argAye              = "aye"
)

// legacyAsMultiArgs is the argument count of asMulti before weights became
// two-dimensional: it also carries store_call and a scalar max_weight.
const legacyAsMultiArgs = 6

// Decode reads call data into a transaction tree. Batch and proxy calls are
// decoded recursively; multisig calls keep their inner call as opaque bytes.
// A call the wallet does not recognise decodes without a type, with its
// arguments kept as JSON text under arg0, arg1, ...
func Decode(l Ledger, chainID, address string, callData []byte) (transaction.DecodedTransaction, error) {
	return decode(l, chainID, address, callData, 0)
}

func decode(l Ledger, chainID, address string, data []byte, depth int) (transaction.DecodedTransaction, error) {
	if depth > MaxDepth {
		return transaction.DecodedTransaction{}, ErrDepth
	}
	call, err := l.ParseCall(data)
	if err != nil {
		return transaction.DecodedTransaction{}, fmt.Errorf("%w: %w", ErrMalformedCall, err)
	}

	d := transaction.DecodedTransaction{
		ChainID: chainID,
		Address: address,
		Section: call.Section,
		Method:  call.Method,
		Args:    transaction.Args{},
	}
	typ, collective := Classify(call.Section, call.Method)
	if typ == "" {
		for i, arg := range call.Args {
			text, err := substrate.RenderJSON(arg.Value)
			if err != nil {
				return transaction.DecodedTransaction{}, fmt.Errorf("%s.%s %s: %w", call.Section, call.Method, arg.Name, err)
			}
			d.Args[fmt.Sprintf("arg%d", i)] = text
		}
		return d, nil
	}

	d.Type = typ
	r := &valueReader{ledger: l, call: call}
	if err := extract(r, &d, collective, depth); err != nil {
		return transaction.DecodedTransaction{}, err
	}
	return d, nil
}

func extract(r *valueReader, d *transaction.DecodedTransaction, collective string, depth int) error {
	a := d.Args
	switch d.Type {
	case transaction.Transfer:
		a[argDest] = r.address("dest")
		a[argValue] = r.number("value")
	case transaction.AssetTransfer:
		a[argAsset] = r.number("id")
		a[argDest] = r.address("target")
		a[argValue] = r.number("amount")
	case transaction.OrmlTransfer:
		a[argDest] = r.address("dest")
		a[argAsset] = r.json("currencyId")
		a[argValue] = r.number("amount")

	case transaction.XcmLimitedTransfer, transaction.XcmTeleport,
		transaction.PolkadotXcmLimitedTransfer, transaction.PolkadotXcmTeleport:
		a[argDest] = r.json("dest")
		a[argBeneficiary] = r.json("beneficiary")
		a[argAssets] = r.json("assets")
		a[argFeeAssetItem] = r.number("feeAssetItem")
		a[argWeightLimit] = r.json("weightLimit")
		deriveXcm(a, r.raw("dest"), r.raw("assets"))
	case transaction.XTokensTransferMultiasset:
		a[argAsset] = r.json("asset")
		a[argDest] = r.json("dest")
		if r.has("destWeight") {
			a[argDestWeight] = r.number("destWeight")
		} else {
			a[argDestWeightLimit] = r.json("destWeightLimit")
		}
		deriveXcm(a, r.raw("dest"), r.raw("asset"))

	case transaction.Bond:
		if r.has("controller") {
			a[argController] = r.address("controller")
		}
		a[argValue] = r.number("value")
		a[transaction.ArgPayee] = r.payee("payee")
	case transaction.Unstake, transaction.Restake:
		a[argValue] = r.number("value")
	case transaction.StakeMore:
		a[argMaxAdditional] = r.number("maxAdditional")
	case transaction.Redeem:
		a[argNumSlashingSpans] = r.number("numSlashingSpans")
	case transaction.Nominate:
		a[argTargets] = r.addresses("targets")
	case transaction.Destination:
		a[transaction.ArgPayee] = r.payee("payee")
	case transaction.Chill:

	case transaction.AddProxy, transaction.RemoveProxy:
		a[argDelegate] = r.address("delegate")
		a[argProxyType] = r.variant("proxyType")
		a[argDelay] = r.number("delay")
	case transaction.CreatePureProxy:
		a[argProxyType] = r.variant("proxyType")
		a[argDelay] = r.number("delay")
		a[argIndex] = r.number("index")
	case transaction.RemovePureProxy:
		a[argSpawner] = r.address("spawner")
		a[argProxyType] = r.variant("proxyType")
		a[argIndex] = r.number("index")
		a[argBlockNumber] = r.number("height")
		a[argExtrinsicIndex] = r.number("extIndex")
	case transaction.Proxy:
		proxied := r.address("real")
		a[transaction.ArgReal] = proxied
		a[transaction.ArgForceProxyType] = r.optionalVariant("forceProxyType")
		inner := r.bytes("call")
		if r.err != nil {
			return r.err
		}
		child, err := decode(r.ledger, d.ChainID, proxied, inner, depth+1)
		if err != nil {
			return fmt.Errorf("proxy call: %w", err)
		}
		a[transaction.ArgTransaction] = child

	case transaction.MultisigAsMulti:
		a[transaction.ArgThreshold] = r.number("threshold")
		a[transaction.ArgOtherSignatories] = r.addresses("otherSignatories")
		a[transaction.ArgMaybeTimepoint] = r.timepoint("maybeTimepoint")
		callData := r.bytes("call")
		a[transaction.ArgCallData] = substrate.HexEncode(callData)
		a[transaction.ArgCallHash] = substrate.HexEncode(r.ledger.Hash(callData))
		if len(r.call.Args) == legacyAsMultiArgs {
			a[transaction.ArgStoreCall] = r.bool("storeCall")
			a[transaction.ArgMaxWeight] = r.number("maxWeight")
		} else {
			a[transaction.ArgMaxWeight] = r.weight("maxWeight")
		}
	case transaction.MultisigApproveAsMulti:
		a[transaction.ArgThreshold] = r.number("threshold")
		a[transaction.ArgOtherSignatories] = r.addresses("otherSignatories")
		a[transaction.ArgMaybeTimepoint] = r.timepoint("maybeTimepoint")
		a[transaction.ArgCallHash] = substrate.HexEncode(r.bytes("callHash"))
		if _, ok := r.raw("maxWeight").(map[string]any); ok {
			a[transaction.ArgMaxWeight] = r.weight("maxWeight")
		} else {
			a[transaction.ArgMaxWeight] = r.number("maxWeight")
		}
	case transaction.MultisigCancelAsMulti:
		a[transaction.ArgThreshold] = r.number("threshold")
		a[transaction.ArgOtherSignatories] = r.addresses("otherSignatories")
		a[transaction.ArgTimepoint] = r.timepoint("timepoint")
		a[transaction.ArgCallHash] = substrate.HexEncode(r.bytes("callHash"))

	case transaction.Vote, transaction.Revote:
		a[argReferendum] = r.number("pollIndex")
		a[transaction.ArgVote] = r.vote("vote")
	case transaction.RemoveVote:
		a[argTrack] = r.optionalNumber("class")
		a[argReferendum] = r.number("index")
	case transaction.Delegate:
		a[argTrack] = r.number("class")
		a[argTarget] = r.address("to")
		a[argConviction] = transaction.Conviction(r.variant("conviction"))
		a[argBalance] = r.number("balance")
	case transaction.Undelegate:
		a[argTrack] = r.number("class")
	case transaction.Unlock:
		a[argTrack] = r.number("class")
		a[argTarget] = r.address("target")

	case transaction.BatchAll:
		items, ok := r.raw("calls").([]any)
		if !ok {
			r.fail("calls", fmt.Errorf("expected a list of calls"))
			return r.err
		}
		txs := make([]transaction.DecodedTransaction, 0, len(items))
		for i, item := range items {
			inner, ok := item.(substrate.RawCall)
			if !ok {
				return fmt.Errorf("batch call %d: %w: not a call", i, ErrMalformedCall)
			}
			child, err := decode(r.ledger, d.ChainID, d.Address, inner, depth+1)
			if err != nil {
				return fmt.Errorf("batch call %d: %w", i, err)
			}
			txs = append(txs, child)
		}
		a[transaction.ArgTransactions] = txs
	case transaction.CollectiveVote:
		a[argPallet] = collective
		a[argPoll] = r.number("poll")
		a[argAye] = r.bool("aye")

	default:
		return fmt.Errorf("%w: %s", ErrNoExtractor, d.Type)
	}
	return r.err
}

// deriveXcm adds the transferred amount and the destination parachain when
// they can be read from the rendered XCM arguments.
func deriveXcm(a transaction.Args, dest, assets any) {
	if amount, ok := fungibleOf(substrate.Render(assets)); ok {
		a[argValue] = amount
	}
	if chain, ok := parachainOf(substrate.Render(dest)); ok {
		a[argDestinationChain] = chain
	}
}
