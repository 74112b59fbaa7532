package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ziflex/lecho/v3"

	"github.com/sparkgate/sparkgate/db/models"
	"github.com/sparkgate/sparkgate/lib/timing"
)

// Pool isolates capability calls from their callers. Each call becomes a
// correlated request/response message handled by one of a bounded set of
// workers, with a per-call timeout and panic recovery, so a wedged or
// crashing wallet operation can delay one invoice but never take down the
// scanner or the API tier.
type Pool struct {
	inner     Capability
	requests  chan *poolRequest
	timeout   time.Duration
	collector *timing.Collector
	logger    *lecho.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

type poolRequest struct {
	id    string
	op    string
	ctx   context.Context
	call  func(ctx context.Context) (interface{}, error)
	reply chan poolResponse
}

type poolResponse struct {
	id     string
	result interface{}
	err    error
}

func NewPool(inner Capability, workers int, timeout time.Duration, collector *timing.Collector, logger *lecho.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		inner:     inner,
		requests:  make(chan *poolRequest),
		timeout:   timeout,
		collector: collector,
		logger:    logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for req := range p.requests {
		result, err := p.run(req)
		// reply is buffered, an abandoned caller never blocks the worker
		req.reply <- poolResponse{id: req.id, result: result, err: err}
	}
}

func (p *Pool) run(req *poolRequest) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if p.logger != nil {
				p.logger.Errorf("Recovered escrow %s panic for request %s: %v", req.op, req.id, r)
			}
			err = wrapError(req.op, fmt.Errorf("capability panic: %v", r))
		}
	}()
	ctx, cancel := context.WithTimeout(req.ctx, p.timeout)
	defer cancel()
	result, err = req.call(ctx)
	if err != nil {
		var capErr *CapabilityError
		if !errors.As(err, &capErr) {
			err = wrapError(req.op, err)
		}
	}
	return result, err
}

func (p *Pool) dispatch(ctx context.Context, op string, call func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	req := &poolRequest{
		id:    uuid.NewString(),
		op:    op,
		ctx:   ctx,
		call:  call,
		reply: make(chan poolResponse, 1),
	}
	start := time.Now()
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return nil, wrapError(op, ctx.Err())
	}
	select {
	case resp := <-req.reply:
		if p.collector != nil {
			p.collector.Record("escrow."+op, time.Since(start))
		}
		return resp.result, resp.err
	case <-ctx.Done():
		return nil, wrapError(op, ctx.Err())
	}
}

// Close stops accepting calls and waits for in-flight ones to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.requests)
	})
	p.wg.Wait()
}

func (p *Pool) Initialize(ctx context.Context, network string) (string, string, error) {
	type initResult struct {
		mnemonic string
		address  string
	}
	result, err := p.dispatch(ctx, "initialize", func(ctx context.Context) (interface{}, error) {
		mnemonic, address, err := p.inner.Initialize(ctx, network)
		if err != nil {
			return nil, err
		}
		return initResult{mnemonic: mnemonic, address: address}, nil
	})
	if err != nil {
		return "", "", err
	}
	r := result.(initResult)
	return r.mnemonic, r.address, nil
}

func (p *Pool) CreateLightningInvoice(ctx context.Context, mnemonic, network string, amountSats int64) (string, error) {
	result, err := p.dispatch(ctx, "createLightningInvoice", func(ctx context.Context) (interface{}, error) {
		return p.inner.CreateLightningInvoice(ctx, mnemonic, network, amountSats)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (p *Pool) GetBalance(ctx context.Context, mnemonic, network string) (*Balance, error) {
	result, err := p.dispatch(ctx, "getBalance", func(ctx context.Context) (interface{}, error) {
		return p.inner.GetBalance(ctx, mnemonic, network)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Balance), nil
}

func (p *Pool) Transfer(ctx context.Context, mnemonic, network string, amountSats int64, receiverAddress string) (string, error) {
	result, err := p.dispatch(ctx, "transfer", func(ctx context.Context) (interface{}, error) {
		return p.inner.Transfer(ctx, mnemonic, network, amountSats, receiverAddress)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (p *Pool) TransferTokens(ctx context.Context, mnemonic, network, tokenIdentifier string, amount int64, receiverAddress string) (string, error) {
	result, err := p.dispatch(ctx, "transferTokens", func(ctx context.Context) (interface{}, error) {
		return p.inner.TransferTokens(ctx, mnemonic, network, tokenIdentifier, amount, receiverAddress)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (p *Pool) PayLightningInvoice(ctx context.Context, mnemonic, network, invoice string, maxFeeSats int64) (string, error) {
	result, err := p.dispatch(ctx, "payLightningInvoice", func(ctx context.Context) (interface{}, error) {
		return p.inner.PayLightningInvoice(ctx, mnemonic, network, invoice, maxFeeSats)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (p *Pool) CreateThirdPartyLightningInvoice(ctx context.Context, network string, req ThirdPartyInvoiceRequest) (string, error) {
	result, err := p.dispatch(ctx, "createThirdPartyLightningInvoice", func(ctx context.Context) (interface{}, error) {
		return p.inner.CreateThirdPartyLightningInvoice(ctx, network, req)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (p *Pool) GetStaticDepositAddress(ctx context.Context, mnemonic, network string) (string, error) {
	result, err := p.dispatch(ctx, "getStaticDepositAddress", func(ctx context.Context) (interface{}, error) {
		return p.inner.GetStaticDepositAddress(ctx, mnemonic, network)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (p *Pool) GetDepositUtxos(ctx context.Context, mnemonic, network, depositAddress string, includeClaimed bool) ([]DepositUtxo, error) {
	result, err := p.dispatch(ctx, "getDepositUtxos", func(ctx context.Context) (interface{}, error) {
		return p.inner.GetDepositUtxos(ctx, mnemonic, network, depositAddress, includeClaimed)
	})
	if err != nil {
		return nil, err
	}
	return result.([]DepositUtxo), nil
}

func (p *Pool) ClaimStaticDeposit(ctx context.Context, mnemonic, network, txHash string, vout int64) (*DepositClaim, error) {
	result, err := p.dispatch(ctx, "claimStaticDeposit", func(ctx context.Context) (interface{}, error) {
		return p.inner.ClaimStaticDeposit(ctx, mnemonic, network, txHash, vout)
	})
	if err != nil {
		return nil, err
	}
	return result.(*DepositClaim), nil
}

func (p *Pool) ClaimAllStaticDeposits(ctx context.Context, mnemonic, network string) (*DepositClaims, error) {
	result, err := p.dispatch(ctx, "claimAllStaticDeposits", func(ctx context.Context) (interface{}, error) {
		return p.inner.ClaimAllStaticDeposits(ctx, mnemonic, network)
	})
	if err != nil {
		return nil, err
	}
	return result.(*DepositClaims), nil
}

func (p *Pool) CoopExit(ctx context.Context, mnemonic, network string, req CoopExitRequest) (*CoopExitResult, error) {
	result, err := p.dispatch(ctx, "coopExit", func(ctx context.Context) (interface{}, error) {
		return p.inner.CoopExit(ctx, mnemonic, network, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*CoopExitResult), nil
}

func (p *Pool) CheckOffers(ctx context.Context, mnemonic, network string, offers []models.Offer) (*OfferStatus, error) {
	result, err := p.dispatch(ctx, "checkOffers", func(ctx context.Context) (interface{}, error) {
		return p.inner.CheckOffers(ctx, mnemonic, network, offers)
	})
	if err != nil {
		return nil, err
	}
	return result.(*OfferStatus), nil
}

func (p *Pool) SweepAll(ctx context.Context, mnemonic, network, receiverAddress string) error {
	_, err := p.dispatch(ctx, "sweepAll", func(ctx context.Context) (interface{}, error) {
		return nil, p.inner.SweepAll(ctx, mnemonic, network, receiverAddress)
	})
	return err
}

var _ Capability = (*Pool)(nil)
