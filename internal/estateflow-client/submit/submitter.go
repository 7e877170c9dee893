// Package submit sends createEstateFlowRequest through the wallet and mirrors the result
// into the local request cache.
package submit

import (
	"context"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/chains"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/constants"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/contract"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/helpers"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/metrics"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/provider"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/requests"
)

var ErrSubmitInProgress = errors.New(constants.SubmitInProgressText)

// Session is the part of the session tracker the submitter reads.
type Session interface {
	Provider() provider.Provider
	Account() string
}

// Cache receives the optimistic local copy of a confirmed submission.
type Cache interface {
	Add(ctx context.Context, d requests.Draft) (requests.Request, error)
}

type Config struct {
	PollInterval time.Duration
	TotalProofs  int
}

type Submitter struct {
	session   Session
	guarantor *chains.Guarantor
	contract  *contract.Contract
	cache     Cache
	cfg       Config
	now       func() time.Time

	inFlight atomic.Bool

	mu    sync.Mutex
	state State
}

func New(sess Session, g *chains.Guarantor, c *contract.Contract, cache Cache, cfg Config) *Submitter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = constants.DefaultReceiptPollInterval
	}
	if cfg.TotalProofs <= 0 {
		cfg.TotalProofs = constants.DefaultTotalProofs
	}
	return &Submitter{
		session:   sess,
		guarantor: g,
		contract:  c,
		cache:     cache,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Submitter) ClearError() {
	s.mu.Lock()
	s.state.Error = ""
	s.mu.Unlock()
}

// Reset forgets the last transaction. It runs when the wallet switches chains.
func (s *Submitter) Reset() {
	s.mu.Lock()
	s.state = State{IsSubmitting: s.inFlight.Load()}
	s.mu.Unlock()
}

func (s *Submitter) set(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
}

func (s *Submitter) fail(msg string) error {
	s.set(func(st *State) {
		st.IsSubmitting = false
		st.Error = msg
	})
	return errors.New(msg)
}

// Submit runs one submission end to end. The returned error text is the message shown to
// the user and is also kept in State.
func (s *Submitter) Submit(ctx context.Context, form FormData) (*Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer s.inFlight.Store(false)

	started := s.now()
	s.set(func(st *State) { *st = State{} })

	res, err := s.submit(ctx, form)
	if err != nil {
		metrics.Submissions.WithLabelValues(submitOutcome(err)).Inc()
		log.Warn("request submission failed", "property", form.PropertyName, "error", err)
		return nil, err
	}

	metrics.Submissions.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.SubmitLatency.Observe(s.now().Sub(started).Seconds())
	return res, nil
}

func (s *Submitter) submit(ctx context.Context, form FormData) (*Result, error) {
	if strings.TrimSpace(form.PropertyName) == "" ||
		strings.TrimSpace(form.LoanAmount) == "" ||
		strings.TrimSpace(form.Description) == "" {
		return nil, s.fail(constants.SubmitMissingFieldsText)
	}

	account := s.session.Account()
	if account == "" {
		return nil, s.fail(constants.SessionConnectWalletFirst)
	}

	p := s.session.Provider()
	if err := s.guarantor.Ensure(ctx, p); err != nil {
		return nil, s.fail(err.Error())
	}

	s.set(func(st *State) { st.IsSubmitting = true })

	params, image, err := s.buildParams(form)
	if err != nil {
		return nil, s.fail(err.Error())
	}

	data, err := s.contract.PackCreateRequest(params)
	if err != nil {
		return nil, s.fail(err.Error())
	}

	raw, err := p.Request(ctx, provider.MethodSendTransaction, sendTxArgs{
		From:  account,
		To:    s.contract.Address().Hex(),
		Data:  hexutil.Encode(data),
		Value: "0x0",
	})
	var hash string
	if err == nil {
		hash, err = provider.DecodeString(raw)
		if err == nil && hash == "" {
			err = errors.New("wallet returned no transaction hash")
		}
	}
	if err != nil {
		return nil, s.fail(submitErrorMessage(err))
	}
	hash = helpers.NormalizeHex0x(hash)
	s.set(func(st *State) { st.TxHash = hash })
	log.Info("transaction sent", "hash", hash, "from", account)

	receipt, err := s.waitReceipt(ctx, p, hash)
	if err != nil {
		return nil, s.fail(submitErrorMessage(err))
	}

	tx := Transaction{
		Hash:          hash,
		Confirmed:     true,
		ReceiptStatus: 1,
		ExplorerURL:   s.guarantor.Network().TxURL(hash),
	}
	if receipt.Status != nil {
		tx.ReceiptStatus = uint64(*receipt.Status)
	}
	if receipt.BlockNumber != nil {
		tx.BlockNumber = receipt.BlockNumber.ToInt().Uint64()
	}
	if tx.ReceiptStatus == 0 {
		return nil, s.fail(constants.SubmitRevertedText)
	}

	requestID := strconv.FormatInt(s.now().UnixMilli(), 10)
	if ev, ok := s.contract.FirstRequestCreated(receipt.logs()); ok {
		requestID = ev.RequestID.String()
	} else {
		log.Warn("no EstateFlowRequestCreated log in receipt, using fallback id", "hash", hash, "id", requestID)
	}

	res := &Result{RequestID: requestID, Transaction: tx}
	if s.cache != nil {
		cached, err := s.cache.Add(ctx, s.draft(form, image, account, requestID, hash))
		if err != nil {
			log.Error("failed to cache submitted request", "id", requestID, "error", err)
		} else {
			res.Request = &cached
		}
	}

	s.set(func(st *State) { st.IsSubmitting = false })
	log.Info("request submitted", "id", requestID, "hash", hash, "block", tx.BlockNumber)
	return res, nil
}

func (s *Submitter) buildParams(form FormData) (contract.CreateParams, string, error) {
	wei, err := helpers.ParseEther(form.LoanAmount)
	if err != nil {
		return contract.CreateParams{}, "", errors.Wrap(err, "invalid loan amount")
	}
	term, err := uintField("loan term", form.LoanTerm)
	if err != nil {
		return contract.CreateParams{}, "", err
	}
	yield, err := uintField("yield preference", form.YieldPreference)
	if err != nil {
		return contract.CreateParams{}, "", err
	}

	image := constants.PlaceholderImage
	imageHash := constants.PlaceholderImageHash
	if strings.TrimSpace(form.PropertyImage) != "" {
		image = strings.TrimSpace(form.PropertyImage)
		imageHash = constants.DemoImageHashPrefix + strconv.FormatInt(s.now().UnixMilli(), 10)
	}

	return contract.CreateParams{
		PropertyName:    form.PropertyName,
		LoanAmount:      wei,
		Description:     form.Description,
		CollateralType:  form.CollateralType,
		LoanTerm:        term,
		YieldPreference: yield,
		ImageHash:       imageHash,
	}, image, nil
}

func uintField(name, v string) (*big.Int, error) {
	n, ok := helpers.IntPrefix(v)
	if !ok || n < 0 {
		return nil, errors.Newf("invalid %s %q", name, v)
	}
	return big.NewInt(n), nil
}

func (s *Submitter) draft(form FormData, image, account, requestID, hash string) requests.Draft {
	rate, _ := helpers.FloatPrefix(form.YieldPreference)
	months, _ := helpers.IntPrefix(form.LoanTerm)
	amount, _ := helpers.FloatPrefix(form.LoanAmount)

	return requests.Draft{
		Property:        form.PropertyName,
		Rate:            rate,
		Months:          int(months),
		TotalProofs:     s.cfg.TotalProofs,
		LoanAmount:      amount,
		Image:           image,
		Description:     form.Description,
		CollateralType:  form.CollateralType,
		YieldPreference: rate,
		Creator:         account,
		TxHash:          hash,
		BlockchainID:    requestID,
		LocalEcho:       true,
	}
}

// waitReceipt polls the wallet until the transaction is mined or ctx ends.
func (s *Submitter) waitReceipt(ctx context.Context, p provider.Provider, hash string) (*rpcReceipt, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		raw, err := p.Request(ctx, provider.MethodTransactionReceipt, hash)
		if err != nil {
			return nil, err
		}
		if !provider.IsNull(raw) {
			var r rpcReceipt
			if err := json.Unmarshal(raw, &r); err != nil {
				return nil, errors.Wrap(err, "decode receipt")
			}
			return &r, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func submitErrorMessage(err error) string {
	if pe, ok := provider.AsError(err); ok {
		switch pe.Code {
		case provider.CodeUserRejected:
			return constants.SubmitRejectedText
		case provider.CodeInternal:
			return constants.SubmitInternalRPCErrorText
		}
		if pe.Message != "" {
			return pe.Message
		}
		return constants.SubmitFailedText
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return constants.SubmitFailedText
}

func submitOutcome(err error) string {
	if err != nil && err.Error() == constants.SubmitRejectedText {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailed
}
