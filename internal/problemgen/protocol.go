package problemgen

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/studyloop/internal/errs"
)

// Protocol runs the duplicate-avoidance steps around a Generator: build the
// avoid-set, over-request, filter, truncate.
type Protocol struct {
	gen Generator
	cfg ProtocolConfig
	log *zap.Logger
}

// NewProtocol wraps gen. A nil logger is replaced with a no-op.
func NewProtocol(gen Generator, cfg ProtocolConfig, log *zap.Logger) *Protocol {
	if log == nil {
		log = zap.NewNop()
	}
	return &Protocol{gen: gen, cfg: cfg, log: log}
}

// Config returns the protocol limits.
func (p *Protocol) Config() ProtocolConfig {
	return p.cfg
}

// Run asks for desired+ExtraCandidates items while passing prior texts as the
// avoid list, then drops malformed entries, anything already in the avoid-set
// and in-batch duplicates. Returns InsufficientUniqueContent if nothing
// survives and UpstreamUnavailable if the generator fails.
func (p *Protocol) Run(ctx context.Context, req Request, desired int, prior []string) (*Batch, error) {
	op := fmt.Sprintf("requestNew(%s)", req.Kind)
	if desired <= 0 {
		return nil, errs.Validation(op, fmt.Sprintf("desired count must be > 0, got %d", desired))
	}
	if p.gen == nil {
		return nil, errs.Upstream(op, fmt.Errorf("no generator configured"))
	}

	avoid := NewAvoidSet(p.cfg.MaxAvoid)
	for _, text := range prior {
		if avoid.Full() {
			break
		}
		avoid.Add(text)
	}

	req.Count = desired + p.cfg.ExtraCandidates
	req.Avoid = avoid.List()

	cands, err := p.gen.Generate(ctx, req)
	if err != nil {
		return nil, errs.Upstream(op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Upstream(op, err)
	}

	batch := &Batch{Requested: desired, Received: len(cands)}
	seen := NewAvoidSet(0)
	for _, raw := range cands {
		if len(batch.Candidates) == desired {
			break
		}
		if raw.Malformed != "" {
			batch.Rejected++
			p.log.Debug("dropped undecodable candidate", zap.String("reason", raw.Malformed))
			continue
		}
		c := clean(raw, req)
		if verr := p.validate(&c, req); verr != nil {
			batch.Rejected++
			p.log.Debug("dropped generated candidate", zap.String("reason", verr.Error()))
			continue
		}
		if avoid.Contains(c.Text) || !seen.Add(c.Text) {
			batch.Duplicates++
			continue
		}
		batch.Candidates = append(batch.Candidates, c)
	}

	p.log.Info("generation protocol finished",
		zap.String("course_id", req.CourseID),
		zap.String("kind", string(req.Kind)),
		zap.Int("requested", desired),
		zap.Int("received", batch.Received),
		zap.Int("accepted", len(batch.Candidates)),
		zap.Int("rejected", batch.Rejected),
		zap.Int("duplicates", batch.Duplicates),
		zap.Int("avoid_set", avoid.Len()),
	)

	if len(batch.Candidates) == 0 {
		return nil, errs.InsufficientUniqueContent(op, desired, len(cands))
	}
	return batch, nil
}

func (p *Protocol) validate(c *Candidate, req Request) *ValidationError {
	for _, v := range p.cfg.Validators {
		if verr := v.Validate(c, req); verr != nil {
			return verr
		}
	}
	return nil
}
