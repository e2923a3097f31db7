// Package txservice estimates, checks and submits wallet transactions
// against a node.
package txservice

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/codec"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

// ErrInsufficientBalance is returned by the balance pre-flight checks.
var ErrInsufficientBalance = errors.New("insufficient balance")

// maxConcurrentEstimates bounds the payment info requests in flight.
const maxConcurrentEstimates = 8

// Client is the node access the service needs.
type Client interface {
	SigningInfo(ctx context.Context, address string) (substrate.SigningInfo, error)
	PaymentInfo(ctx context.Context, extrinsic []byte) (substrate.PaymentInfo, error)
	FreeBalance(ctx context.Context, accountID []byte) (*big.Int, error)
	SubmitAndWatch(ctx context.Context, extrinsic []byte) (<-chan substrate.ExtrinsicStatus, error)
	Block(ctx context.Context, blockHash []byte) (substrate.Block, error)
	EventsAt(ctx context.Context, blockHash []byte) ([]byte, error)
}

var _ Client = (*substrate.Client)(nil)

// Runtime is the ledger context of the chain the service talks to.
type Runtime interface {
	codec.ExtrinsicLedger
	DecodeEvents(data []byte) ([]substrate.EventRecord, error)
	DispatchErrorName(v any) string
}

var _ Runtime = (*substrate.Runtime)(nil)

// Service runs transactions of one chain.
type Service struct {
	log     *zap.Logger
	chainID string
	client  Client
	rt      Runtime
	metrics Metrics
	opts    substrate.Options
}

// New returns a Service for chainID. A nil metrics records nothing.
func New(log *zap.Logger, chainID string, client Client, rt Runtime, metrics Metrics) *Service {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Service{
		log:     log.With(zap.String("chain_id", chainID)),
		chainID: chainID,
		client:  client,
		rt:      rt,
		metrics: metrics,
	}
}

// WithOptions sets the envelope options used for built extrinsics.
func (s *Service) WithOptions(opts substrate.Options) *Service {
	s.opts = opts
	return s
}

// Unsigned builds the signable extrinsic of tx against the latest chain state.
func (s *Service) Unsigned(ctx context.Context, tx transaction.Transaction) (*substrate.UnsignedExtrinsic, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	info, err := s.client.SigningInfo(ctx, tx.Address)
	if err != nil {
		return nil, fmt.Errorf("signing info: %w", err)
	}
	return codec.BuildUnsigned(s.rt, tx, info, s.opts)
}

func (s *Service) paymentInfo(ctx context.Context, tx transaction.Transaction) (substrate.PaymentInfo, error) {
	start := time.Now()
	unsigned, err := s.Unsigned(ctx, tx)
	if err != nil {
		return substrate.PaymentInfo{}, err
	}
	fake, err := unsigned.FakeSigned()
	if err != nil {
		return substrate.PaymentInfo{}, err
	}
	info, err := s.client.PaymentInfo(ctx, fake.Data)
	if err != nil {
		return substrate.PaymentInfo{}, err
	}
	s.metrics.Estimated(s.chainID, time.Since(start))
	return info, nil
}

// EstimateFee returns the partial fee the node expects for tx.
func (s *Service) EstimateFee(ctx context.Context, tx transaction.Transaction) (*big.Int, error) {
	info, err := s.paymentInfo(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("estimate fee of %s: %w", tx.Type, err)
	}
	return info.PartialFee, nil
}

// EstimateWeight returns the dispatch weight of tx. It fills maxWeight of the
// final multisig approval, where tx is the call being approved.
func (s *Service) EstimateWeight(ctx context.Context, tx transaction.Transaction) (transaction.Weight, error) {
	info, err := s.paymentInfo(ctx, tx)
	if err != nil {
		return transaction.Weight{}, fmt.Errorf("estimate weight of %s: %w", tx.Type, err)
	}
	return transaction.Weight{RefTime: info.RefTime, ProofSize: info.ProofSize}, nil
}

// EstimateFees estimates every transaction concurrently. Fees are returned
// in input order.
func (s *Service) EstimateFees(ctx context.Context, txs []transaction.Transaction) ([]*big.Int, error) {
	fees := make([]*big.Int, len(txs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEstimates)
	for i, tx := range txs {
		g.Go(func() error {
			fee, err := s.EstimateFee(ctx, tx)
			if err != nil {
				return fmt.Errorf("transaction %d: %w", i, err)
			}
			fees[i] = fee
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fees, nil
}

// CheckBalance fails with ErrInsufficientBalance when the free balance of
// address is below required.
func (s *Service) CheckBalance(ctx context.Context, address string, required *big.Int) error {
	accountID, err := s.rt.DecodeAddress(address)
	if err != nil {
		return err
	}
	free, err := s.client.FreeBalance(ctx, accountID)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", address, err)
	}
	if free.Cmp(required) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, address, free, required)
	}
	return nil
}

// CheckFeeBalance checks that the origin of tx can pay amount plus the fee.
// It returns the estimated fee.
func (s *Service) CheckFeeBalance(ctx context.Context, tx transaction.Transaction, amount *big.Int) (*big.Int, error) {
	fee, err := s.EstimateFee(ctx, tx)
	if err != nil {
		return nil, err
	}
	required := new(big.Int).Set(fee)
	if amount != nil {
		required.Add(required, amount)
	}
	return fee, s.CheckBalance(ctx, tx.Address, required)
}

// VerifySignature checks a signature produced for the signing payload.
func (s *Service) VerifySignature(ct substrate.CryptoType, publicKey, payload, sig []byte) (bool, error) {
	return substrate.Verify(ct, publicKey, payload, sig)
}

// DispatchError renders a decoded DispatchError as readable text.
func (s *Service) DispatchError(v any) string {
	return s.rt.DispatchErrorName(v)
}
