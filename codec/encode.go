package codec

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

const (
	weightUnlimited = "Unlimited"
	defaultPayee    = transaction.PayeeStaked
)

// BuildCall encodes the call of tx. Batch and proxy transactions encode their
// nested transactions recursively; multisig transactions embed the call data
// or hash already present in their arguments.
func BuildCall(l Ledger, tx transaction.Transaction) (substrate.Call, error) {
	return buildCall(l, tx, 0)
}

// BuildUnsigned encodes tx and wraps it in a signable extrinsic for the
// account at tx.Address.
func BuildUnsigned(l ExtrinsicLedger, tx transaction.Transaction, info substrate.SigningInfo, opts substrate.Options) (*substrate.UnsignedExtrinsic, error) {
	call, err := BuildCall(l, tx)
	if err != nil {
		return nil, err
	}
	accountID, err := l.DecodeAddress(tx.Address)
	if err != nil {
		return nil, fmt.Errorf("signer address: %w", err)
	}
	return l.NewUnsignedExtrinsic(call, accountID, info, opts)
}

func buildCall(l Ledger, tx transaction.Transaction, depth int) (substrate.Call, error) {
	if depth > MaxDepth {
		return substrate.Call{}, ErrDepth
	}
	section, method, args, err := callArgs(l, tx, depth)
	if err != nil {
		return substrate.Call{}, fmt.Errorf("%s: %w", tx.Type, err)
	}
	return l.NewCall(section, method, args)
}

// argReader collects every missing argument instead of stopping at the first.
type argReader struct {
	args transaction.Args
	err  error
}

func (r *argReader) fail(err error) {
	r.err = multierr.Append(r.err, err)
}

func (r *argReader) get(name string) any {
	v, ok := r.args[name]
	if !ok {
		r.fail(fmt.Errorf("%w %s", ErrMissingArg, name))
	}
	return v
}

func (r *argReader) getOr(name string, def any) any {
	if v, ok := r.args[name]; ok {
		return v
	}
	return def
}

func (r *argReader) json(name string) any {
	return parseJSONArg(r.get(name))
}

func (r *argReader) convert(name string, v any, fn func(any) (any, error)) any {
	out, err := fn(v)
	if err != nil {
		r.fail(fmt.Errorf("%s: %w", name, err))
	}
	return out
}

func callArgs(l Ledger, tx transaction.Transaction, depth int) (section, method string, args map[string]any, err error) {
	r := &argReader{args: tx.Args}

	switch tx.Type {
	case transaction.Transfer:
		section, method = sectionBalances, methodTransferAllowDeath
		switch {
		case l.HasMethod(sectionBalances, methodTransferKeepAlive):
			method = methodTransferKeepAlive
		case l.HasMethod(sectionBalances, methodTransfer):
			method = methodTransfer
		}
		args = map[string]any{
			"dest":  r.get(argDest),
			"value": r.get(argValue),
		}
	case transaction.AssetTransfer:
		section, method = sectionAssets, methodTransfer
		if l.HasMethod(sectionAssets, methodTransferKeepAlive) {
			method = methodTransferKeepAlive
		}
		args = map[string]any{
			"id":     r.get(argAsset),
			"target": r.get(argDest),
			"amount": r.get(argValue),
		}
	case transaction.OrmlTransfer:
		section, method = sectionTokens, methodTransfer
		if l.HasMethod(sectionCurrencies, methodTransfer) {
			section = sectionCurrencies
		}
		args = map[string]any{
			"dest":       r.get(argDest),
			"currencyId": r.json(argAsset),
			"amount":     r.get(argValue),
		}

	case transaction.XcmLimitedTransfer:
		section, method, args = sectionXcmPallet, methodLimitedReserve, xcmArgs(r)
	case transaction.XcmTeleport:
		section, method, args = sectionXcmPallet, methodLimitedTeleport, xcmArgs(r)
	case transaction.PolkadotXcmLimitedTransfer:
		section, method, args = sectionPolkadotXcm, methodLimitedReserve, xcmArgs(r)
	case transaction.PolkadotXcmTeleport:
		section, method, args = sectionPolkadotXcm, methodLimitedTeleport, xcmArgs(r)
	case transaction.XTokensTransferMultiasset:
		section, method = sectionXTokens, "transferMultiasset"
		args = map[string]any{
			"asset": r.json(argAsset),
			"dest":  r.json(argDest),
		}
		if hasParam(l, section, method, argDestWeight) {
			args["destWeight"] = r.get(argDestWeight)
		} else {
			args["destWeightLimit"] = parseJSONArg(r.getOr(argDestWeightLimit, weightUnlimited))
		}

	case transaction.Bond:
		section, method = sectionStaking, "bond"
		args = map[string]any{
			"value": r.get(argValue),
			"payee": r.convert(transaction.ArgPayee, r.getOr(transaction.ArgPayee, defaultPayee), payeeValue),
		}
		if hasParam(l, section, method, argController) {
			args["controller"] = r.getOr(argController, tx.Address)
		}
	case transaction.Unstake:
		section, method = sectionStaking, "unbond"
		args = map[string]any{"value": r.get(argValue)}
	case transaction.Restake:
		section, method = sectionStaking, "rebond"
		args = map[string]any{"value": r.get(argValue)}
	case transaction.Redeem:
		section, method = sectionStaking, "withdrawUnbonded"
		args = map[string]any{"numSlashingSpans": r.get(argNumSlashingSpans)}
	case transaction.Nominate:
		section, method = sectionStaking, "nominate"
		args = map[string]any{"targets": r.get(argTargets)}
	case transaction.StakeMore:
		section, method = sectionStaking, "bondExtra"
		args = map[string]any{"maxAdditional": r.get(argMaxAdditional)}
	case transaction.Destination:
		section, method = sectionStaking, "setPayee"
		args = map[string]any{
			"payee": r.convert(transaction.ArgPayee, r.getOr(transaction.ArgPayee, defaultPayee), payeeValue),
		}
	case transaction.Chill:
		section, method = sectionStaking, "chill"
		args = map[string]any{}

	case transaction.AddProxy, transaction.RemoveProxy:
		section, method = sectionProxy, "addProxy"
		if tx.Type == transaction.RemoveProxy {
			method = "removeProxy"
		}
		args = map[string]any{
			"delegate":  r.get(argDelegate),
			"proxyType": r.get(argProxyType),
			"delay":     r.get(argDelay),
		}
	case transaction.CreatePureProxy:
		section, method = sectionProxy, "createPure"
		args = map[string]any{
			"proxyType": r.get(argProxyType),
			"delay":     r.get(argDelay),
			"index":     r.get(argIndex),
		}
	case transaction.RemovePureProxy:
		section, method = sectionProxy, "killPure"
		args = map[string]any{
			"spawner":   r.get(argSpawner),
			"proxyType": r.get(argProxyType),
			"index":     r.get(argIndex),
			"height":    r.get(argBlockNumber),
			"extIndex":  r.get(argExtrinsicIndex),
		}
	case transaction.Proxy:
		section, method = sectionProxy, "proxy"
		args = map[string]any{
			"real":           r.get(transaction.ArgReal),
			"forceProxyType": r.getOr(transaction.ArgForceProxyType, nil),
			"call":           nestedCall(l, r, depth),
		}

	case transaction.MultisigAsMulti:
		section = sectionMultisig
		legacy := hasParam(l, sectionMultisig, methodAsMulti, transaction.ArgStoreCall)
		args = multisigArgs(r)
		args["maxWeight"] = r.convert(transaction.ArgMaxWeight, r.getOr(transaction.ArgMaxWeight, nil), weightValue(legacy))
		if data, _ := tx.Args.String(transaction.ArgCallData); data != "" {
			method = methodAsMulti
			args["call"] = data
			if legacy {
				args["storeCall"] = r.getOr(transaction.ArgStoreCall, false)
			}
		} else {
			// only the hash is known: approve without the call
			method = methodApproveAsMulti
			args["callHash"] = r.get(transaction.ArgCallHash)
		}
	case transaction.MultisigApproveAsMulti:
		section, method = sectionMultisig, methodApproveAsMulti
		legacy := hasParam(l, sectionMultisig, methodAsMulti, transaction.ArgStoreCall)
		args = multisigArgs(r)
		args["callHash"] = r.get(transaction.ArgCallHash)
		args["maxWeight"] = r.convert(transaction.ArgMaxWeight, r.getOr(transaction.ArgMaxWeight, nil), weightValue(legacy))
	case transaction.MultisigCancelAsMulti:
		section, method = sectionMultisig, methodCancelAsMulti
		args = map[string]any{
			"threshold":        r.get(transaction.ArgThreshold),
			"otherSignatories": r.get(transaction.ArgOtherSignatories),
			"timepoint":        r.convert(transaction.ArgTimepoint, r.get(transaction.ArgTimepoint), timepointValue),
			"callHash":         r.get(transaction.ArgCallHash),
		}

	case transaction.Vote, transaction.Revote:
		section, method = sectionConvictionVoting, methodVote
		args = map[string]any{
			"pollIndex": r.get(argReferendum),
			"vote":      r.convert(transaction.ArgVote, r.get(transaction.ArgVote), voteValue),
		}
	case transaction.RemoveVote:
		section, method = sectionConvictionVoting, "removeVote"
		args = map[string]any{
			"class": r.getOr(argTrack, nil),
			"index": r.get(argReferendum),
		}
	case transaction.Delegate:
		section, method = sectionConvictionVoting, "delegate"
		args = map[string]any{
			"class":      r.get(argTrack),
			"to":         r.get(argTarget),
			"conviction": r.convert(argConviction, r.get(argConviction), convictionValue),
			"balance":    r.get(argBalance),
		}
	case transaction.Undelegate:
		section, method = sectionConvictionVoting, "undelegate"
		args = map[string]any{"class": r.get(argTrack)}
	case transaction.Unlock:
		section, method = sectionConvictionVoting, "unlock"
		args = map[string]any{
			"class":  r.get(argTrack),
			"target": r.get(argTarget),
		}

	case transaction.BatchAll:
		section, method = sectionUtility, "batchAll"
		args = map[string]any{"calls": batchCalls(l, r, depth)}
	case transaction.CollectiveVote:
		pallet, _ := r.get(argPallet).(string)
		section, method = pallet+collectiveSuffix, methodVote
		args = map[string]any{
			"poll": r.get(argPoll),
			"aye":  r.get(argAye),
		}

	default:
		return "", "", nil, fmt.Errorf("%w %q", ErrUnknownType, tx.Type)
	}

	if r.err != nil {
		return "", "", nil, r.err
	}
	return section, method, args, nil
}

func xcmArgs(r *argReader) map[string]any {
	return map[string]any{
		"dest":         r.json(argDest),
		"beneficiary":  r.json(argBeneficiary),
		"assets":       r.json(argAssets),
		"feeAssetItem": r.getOr(argFeeAssetItem, "0"),
		"weightLimit":  parseJSONArg(r.getOr(argWeightLimit, weightUnlimited)),
	}
}

func multisigArgs(r *argReader) map[string]any {
	return map[string]any{
		"threshold":        r.get(transaction.ArgThreshold),
		"otherSignatories": r.get(transaction.ArgOtherSignatories),
		"maybeTimepoint":   r.convert(transaction.ArgMaybeTimepoint, r.getOr(transaction.ArgMaybeTimepoint, nil), timepointValue),
	}
}

func nestedCall(l Ledger, r *argReader, depth int) any {
	inner, ok := r.args.Transaction(transaction.ArgTransaction)
	if !ok {
		r.fail(fmt.Errorf("%w %s", ErrMissingArg, transaction.ArgTransaction))
		return nil
	}
	call, err := buildCall(l, inner, depth+1)
	if err != nil {
		r.fail(fmt.Errorf("proxy call: %w", err))
		return nil
	}
	return call
}

func batchCalls(l Ledger, r *argReader, depth int) any {
	inner, ok := r.args.Transactions(transaction.ArgTransactions)
	if !ok {
		r.fail(fmt.Errorf("%w %s", ErrMissingArg, transaction.ArgTransactions))
		return nil
	}
	calls := make([]any, 0, len(inner))
	for i, tx := range inner {
		call, err := buildCall(l, tx, depth+1)
		if err != nil {
			r.fail(fmt.Errorf("batch call %d: %w", i, err))
			return nil
		}
		calls = append(calls, call)
	}
	return calls
}

func payeeValue(v any) (any, error) {
	var p transaction.Payee
	switch t := v.(type) {
	case transaction.Payee:
		p = t
	case *transaction.Payee:
		p = *t
	case string:
		p = transaction.Payee{Type: t}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnparseableSelector, v)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseableSelector, err)
	}
	if p.Type == transaction.PayeeAccount {
		return map[string]any{transaction.PayeeAccount: p.Account}, nil
	}
	return p.Type, nil
}

func voteValue(v any) (any, error) {
	var vote transaction.AccountVote
	switch t := v.(type) {
	case transaction.AccountVote:
		vote = t
	case *transaction.AccountVote:
		vote = *t
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnparseableSelector, v)
	}
	if err := vote.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseableSelector, err)
	}

	switch vote.Kind {
	case transaction.VoteStandard:
		idx, _ := vote.Conviction.Index()
		if vote.Aye {
			idx |= 0x80
		}
		return map[string]any{vote.Kind: map[string]any{
			"vote":    idx,
			"balance": vote.Balance,
		}}, nil
	case transaction.VoteSplit:
		return map[string]any{vote.Kind: map[string]any{
			"aye": vote.AyeBalance,
			"nay": vote.NayBalance,
		}}, nil
	default:
		return map[string]any{vote.Kind: map[string]any{
			"aye":     vote.AyeBalance,
			"nay":     vote.NayBalance,
			"abstain": vote.AbstainBalance,
		}}, nil
	}
}

func convictionValue(v any) (any, error) {
	var c transaction.Conviction
	switch t := v.(type) {
	case transaction.Conviction:
		c = t
	case string:
		c = transaction.Conviction(t)
	default:
		return nil, fmt.Errorf("expected a conviction, got %T", v)
	}
	if _, err := c.Index(); err != nil {
		return nil, err
	}
	return string(c), nil
}

func timepointValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case transaction.Timepoint:
		return map[string]any{"height": t.Height, "index": t.Index}, nil
	case *transaction.Timepoint:
		if t == nil {
			return nil, nil
		}
		return map[string]any{"height": t.Height, "index": t.Index}, nil
	case map[string]any:
		return t, nil
	}
	return nil, fmt.Errorf("expected a timepoint, got %T", v)
}

// weightValue encodes a maximum weight for the runtime's multisig shape:
// a scalar ref time on legacy runtimes, a two-dimensional record otherwise.
// An absent weight encodes as zero.
func weightValue(legacy bool) func(any) (any, error) {
	return func(v any) (any, error) {
		var w transaction.Weight
		switch t := v.(type) {
		case nil:
		case transaction.Weight:
			w = t
		case *transaction.Weight:
			w = *t
		default:
			if legacy {
				return t, nil
			}
			return map[string]any{"refTime": t, "proofSize": 0}, nil
		}
		if legacy {
			return w.RefTime, nil
		}
		return map[string]any{"refTime": w.RefTime, "proofSize": w.ProofSize}, nil
	}
}
