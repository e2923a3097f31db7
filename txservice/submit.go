package txservice

import (
	"bytes"
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

// Event names matched while watching a submission.
const (
	sectionSystem          = "system"
	sectionMultisig        = "multisig"
	eventExtrinsicSuccess  = "ExtrinsicSuccess"
	eventExtrinsicFailed   = "ExtrinsicFailed"
	eventMultisigExecuted  = "MultisigExecuted"
	fieldDispatchError     = "dispatchError"
	fieldResult            = "result"
	resultErr              = "Err"
	errNoOutcome           = "included without an outcome event"
	errSubscriptionClosed  = "subscription closed before inclusion"
	errExtrinsicNotInBlock = "extrinsic not found in block"
)

// Result describes a finished submission.
type Result struct {
	// Timepoint is the block number and extrinsic index of the inclusion.
	Timepoint     transaction.Timepoint
	ExtrinsicHash string
	BlockHash     string
	// IsFinalApprove is set when the extrinsic executed a multisig call.
	IsFinalApprove bool
	// MultisigError is the dispatch error of the executed multisig call.
	MultisigError string
	// Error is the reason a failed submission failed.
	Error string
}

// Callback receives the outcome of one submission.
type Callback func(ok bool, res Result)

// Submit submits ext and blocks until its outcome is known, then calls cb
// exactly once. If ctx ends first cb is not called.
func (s *Service) Submit(ctx context.Context, ext *substrate.SignedExtrinsic, cb Callback) {
	ok, res, done := s.watch(ctx, ext)
	if !done {
		return
	}
	if ok {
		s.metrics.Succeeded(s.chainID)
	} else {
		s.metrics.Failed(s.chainID)
	}
	cb(ok, res)
}

// SubmitAll submits every extrinsic concurrently and reports each outcome
// with its index. It returns once all submissions have finished.
func (s *Service) SubmitAll(ctx context.Context, exts []*substrate.SignedExtrinsic, cb func(i int, ok bool, res Result)) {
	var g errgroup.Group
	for i, ext := range exts {
		g.Go(func() error {
			s.Submit(ctx, ext, func(ok bool, res Result) { cb(i, ok, res) })
			return nil
		})
	}
	_ = g.Wait()
}

// watch follows ext until an outcome. done is false when ctx ended first.
func (s *Service) watch(ctx context.Context, ext *substrate.SignedExtrinsic) (ok bool, res Result, done bool) {
	res.ExtrinsicHash = substrate.HexEncode(ext.Hash)
	log := s.log.With(zap.String("extrinsic_hash", res.ExtrinsicHash))

	fail := func(reason string) (bool, Result, bool) {
		res.Error = reason
		log.Info("Extrinsic failed", zap.String("reason", reason))
		return false, res, true
	}

	statuses, err := s.client.SubmitAndWatch(ctx, ext.Data)
	if err != nil {
		if ctx.Err() != nil {
			return false, res, false
		}
		return fail(err.Error())
	}
	s.metrics.Submitted(s.chainID)
	log.Debug("Extrinsic submitted")

	for {
		var (
			st   substrate.ExtrinsicStatus
			open bool
		)
		select {
		case <-ctx.Done():
			return false, res, false
		case st, open = <-statuses:
		}
		if !open {
			if ctx.Err() != nil {
				return false, res, false
			}
			return fail(errSubscriptionClosed)
		}

		log.Debug("Extrinsic status", zap.Stringer("status", st.Kind))
		switch st.Kind {
		case substrate.StatusInBlock, substrate.StatusFinalized:
			res.BlockHash = substrate.HexEncode(st.BlockHash)
			got, err := s.readOutcome(ctx, ext, st.BlockHash, &res)
			if err != nil {
				if ctx.Err() != nil {
					return false, res, false
				}
				log.Warn("Reading extrinsic outcome", zap.String("block_hash", res.BlockHash), zap.Error(err))
			}
			switch {
			case got == outcomeSuccess:
				log.Info("Extrinsic succeeded",
					zap.String("block_hash", res.BlockHash),
					zap.Bool("final_approve", res.IsFinalApprove),
				)
				return true, res, true
			case got == outcomeFailed:
				return fail(res.Error)
			case st.Kind == substrate.StatusFinalized:
				if err != nil {
					return fail(err.Error())
				}
				return fail(errNoOutcome)
			}
		case substrate.StatusDropped, substrate.StatusInvalid, substrate.StatusUsurped:
			return fail(st.Kind.String())
		case substrate.StatusError:
			return fail(st.Err.Error())
		}
	}
}

type outcome int

const (
	outcomeUnknown outcome = iota
	outcomeSuccess
	outcomeFailed
)

// readOutcome reads the events of ext in the block. Only events emitted for the
// extrinsic's own index count; a failure wins over any success.
func (s *Service) readOutcome(ctx context.Context, ext *substrate.SignedExtrinsic, blockHash []byte, res *Result) (outcome, error) {
	block, err := s.client.Block(ctx, blockHash)
	if err != nil {
		return outcomeUnknown, err
	}
	index := -1
	for i, data := range block.Extrinsics {
		if bytes.Equal(substrate.Blake2b256(data), ext.Hash) {
			index = i
			break
		}
	}
	if index < 0 {
		return outcomeUnknown, errors.New(errExtrinsicNotInBlock)
	}

	raw, err := s.client.EventsAt(ctx, blockHash)
	if err != nil {
		return outcomeUnknown, err
	}
	events, err := s.rt.DecodeEvents(raw)
	if err != nil {
		return outcomeUnknown, err
	}

	res.Timepoint = transaction.Timepoint{Height: uint32(block.Number), Index: uint32(index)}
	result := outcomeUnknown
	for _, ev := range events {
		if !ev.Phase.ApplyExtrinsic || ev.Phase.ExtrinsicIndex != uint32(index) {
			continue
		}
		switch {
		case ev.Is(sectionSystem, eventExtrinsicFailed):
			v, _ := ev.Field(fieldDispatchError)
			res.Error = s.DispatchError(v)
			return outcomeFailed, nil
		case ev.Is(sectionSystem, eventExtrinsicSuccess):
			result = outcomeSuccess
		case ev.Is(sectionMultisig, eventMultisigExecuted):
			res.IsFinalApprove = true
			if v, ok := ev.Field(fieldResult); ok {
				if m, ok := v.(map[string]any); ok {
					if dispatchErr, failed := m[resultErr]; failed {
						res.MultisigError = s.DispatchError(dispatchErr)
					}
				}
			}
		}
	}
	return result, nil
}
