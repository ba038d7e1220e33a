// Package fallback runs an ordered chain of interchangeable providers for one
// capability until one of them produces an acceptable result.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

// SourceNone is reported when no provider produced a result.
const SourceNone = "none"

// Provider is one entry of a chain. Providers sharing a Class share a billing
// account: once one reports a quota error the rest of the class is skipped.
type Provider[Req, Res any] interface {
	Name() string
	Class() string
	Generate(ctx context.Context, req Req) (Res, error)
}

// Verdict is the outcome of the Accept hook.
type Verdict struct {
	Accepted bool
	Reason   string
}

// Rejection records a produced result that the Accept hook turned down.
type Rejection struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// Result is the outcome of running a chain. It is never accompanied by an error.
type Result[Res any] struct {
	Success    bool
	Asset      Res
	Source     string
	Failures   []domain.ServiceFailure
	Rejections []Rejection
	Attempted  []string
}

// Options tune chain behaviour.
type Options[Res any] struct {
	// Timeout bounds each provider call. Zero disables it.
	Timeout time.Duration
	// Attempts is the number of calls per provider for transient errors.
	Attempts int
	// Accept validates a produced result. Nil accepts everything.
	Accept func(Res) Verdict
	Logger *zerolog.Logger
	Now    func() time.Time
}

// Chain is an ordered provider list for one capability.
type Chain[Req, Res any] struct {
	name      string
	providers []Provider[Req, Res]
	opts      Options[Res]
	logger    zerolog.Logger
}

// NewChain builds a chain. Nil providers are dropped.
func NewChain[Req, Res any](name string, opts Options[Res], providers ...Provider[Req, Res]) *Chain[Req, Res] {
	list := make([]Provider[Req, Res], 0, len(providers))
	for _, p := range providers {
		if p != nil {
			list = append(list, p)
		}
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := zerolog.New(io.Discard)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Chain[Req, Res]{name: name, providers: list, opts: opts, logger: logger.With().Str("chain", name).Logger()}
}

// Name returns the capability name.
func (c *Chain[Req, Res]) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Len returns the number of providers.
func (c *Chain[Req, Res]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.providers)
}

// WithAccept returns a copy of the chain using accept as the validation hook.
func (c *Chain[Req, Res]) WithAccept(accept func(Res) Verdict) *Chain[Req, Res] {
	if c == nil {
		return nil
	}
	clone := *c
	clone.opts.Accept = accept
	return &clone
}

// Run tries each provider in order.
func (c *Chain[Req, Res]) Run(ctx context.Context, req Req) Result[Res] {
	res := Result[Res]{Source: SourceNone}
	if c == nil || len(c.providers) == 0 {
		return res
	}
	exhausted := map[string]bool{}
	for i, p := range c.providers {
		name := p.Name()
		hasNext := i < len(c.providers)-1
		if err := ctx.Err(); err != nil {
			res.Failures = append(res.Failures, c.failure(name, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err), hasNext))
			continue
		}
		class := strings.TrimSpace(p.Class())
		if class != "" && exhausted[class] {
			res.Failures = append(res.Failures, c.failure(name, fmt.Errorf("skipped: quota exhausted for %s", class), hasNext))
			continue
		}
		res.Attempted = append(res.Attempted, name)
		asset, err := c.call(ctx, p, req)
		if err != nil {
			if IsQuota(err) && class != "" {
				exhausted[class] = true
			}
			c.logger.Warn().Err(err).Str("provider", name).Bool("fallback", hasNext).Msg("fallback: provider failed")
			res.Failures = append(res.Failures, c.failure(name, err, hasNext))
			continue
		}
		if c.opts.Accept != nil {
			if v := c.opts.Accept(asset); !v.Accepted {
				c.logger.Info().Str("provider", name).Str("reason", v.Reason).Msg("fallback: result rejected")
				res.Rejections = append(res.Rejections, Rejection{Provider: name, Reason: v.Reason})
				continue
			}
		}
		res.Success = true
		res.Asset = asset
		res.Source = name
		return res
	}
	return res
}

func (c *Chain[Req, Res]) call(ctx context.Context, p Provider[Req, Res], req Req) (Res, error) {
	var (
		asset Res
		err   error
	)
	for attempt := 0; attempt < c.opts.Attempts; attempt++ {
		callCtx := ctx
		cancel := func() {}
		if c.opts.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		}
		asset, err = safeGenerate(callCtx, p, req)
		cancel()
		if err == nil || IsQuota(err) || ctx.Err() != nil {
			return asset, err
		}
	}
	return asset, err
}

func safeGenerate[Req, Res any](ctx context.Context, p Provider[Req, Res], req Req) (res Res, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: provider panic: %v", domain.ErrProviderFailure, r)
		}
	}()
	return p.Generate(ctx, req)
}

func (c *Chain[Req, Res]) failure(service string, err error, hasNext bool) domain.ServiceFailure {
	return domain.ServiceFailure{
		Service:      service,
		Timestamp:    c.opts.Now().UTC(),
		Error:        err.Error(),
		FallbackUsed: hasNext,
	}
}

var quotaMarkers = []string{
	"quota",
	"billing",
	"insufficient_quota",
	"insufficient credits",
	"insufficient balance",
	"payment required",
	"credit limit",
	"status 402",
}

// IsQuota reports whether err is a billing/quota-class failure.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrQuotaExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Func adapts a function into a Provider.
type Func[Req, Res any] struct {
	ProviderName  string
	ProviderClass string
	Fn            func(ctx context.Context, req Req) (Res, error)
}

func (f Func[Req, Res]) Name() string  { return f.ProviderName }
func (f Func[Req, Res]) Class() string { return f.ProviderClass }

func (f Func[Req, Res]) Generate(ctx context.Context, req Req) (Res, error) {
	return f.Fn(ctx, req)
}
