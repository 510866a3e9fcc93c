package ranger

import (
	"context"
	"errors"

	"github.com/dwhowett/httpiovec/internal/ratelimit"
)

// VectorReadOrchestrator is the top-level dispatcher: PreadVec decides
// between a multirange attempt, a simulated multirange (N single-range
// GETs), and a full-body scatter, recovering from the several ways real
// servers diverge from RFC 7233.
type VectorReadOrchestrator struct {
	cfg orchestratorConfig
}

// NewOrchestrator builds a VectorReadOrchestrator with the given options
// applied over the defaults (header budget 3900, size guard 1 MiB / 2x).
func NewOrchestrator(opts ...Option) *VectorReadOrchestrator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &VectorReadOrchestrator{cfg: cfg}
}

// PreadVec implements preadVec (spec.md section 4.6). A negative total is
// never returned; failures come back as a non-nil error instead, which is
// more idiomatic Go than the original's sentinel ssize_t.
func (o *VectorReadOrchestrator) PreadVec(ctx context.Context, ioctx IOChainContext, inputs []RangeRequest) ([]RangeResult, int64, error) {
	if len(inputs) == 0 {
		return nil, 0, nil
	}

	if len(inputs) == 1 {
		o.cfg.logger.Debug("single range, issuing one single-range read")
		return o.simulateMultirange(ctx, ioctx, inputs)
	}
	if v, ok := ioctx.URIFragmentParam("multirange"); ok && v == "false" {
		o.cfg.logger.Debug("multirange disabled by URI, issuing single-range reads", "ranges", len(inputs))
		return o.simulateMultirange(ctx, ioctx, inputs)
	}

	results, total, outcome, err := o.performMultirange(ctx, ioctx, inputs)
	if err != nil {
		return nil, 0, err
	}
	switch outcome {
	case Success, SuccessButWholeFile:
		return results, total, nil
	default: // NoMultirangeSupported
		o.cfg.logger.Debug("multirange unsupported, falling back to single-range reads", "ranges", len(inputs))
		return o.simulateMultirange(ctx, ioctx, inputs)
	}
}

// performMultirange implements the multirange path of spec.md section 4.6.
func (o *VectorReadOrchestrator) performMultirange(ctx context.Context, ioctx IOChainContext, inputs []RangeRequest) ([]RangeResult, int64, Outcome, error) {
	var totalRequested uint64
	for _, in := range inputs {
		totalRequested += in.Size
	}

	chunks := PackRangeHeaders(NewSliceCursor(inputs), o.cfg.headerBudget)
	o.cfg.logger.Debug("packed range headers", "chunks", len(chunks), "ranges", len(inputs))

	results := make([]RangeResult, len(inputs))
	for i, in := range inputs {
		results[i].Buffer = in.Buffer
	}

	var total int64
	offset := 0
	for _, chunk := range chunks {
		group := inputs[offset : offset+chunk.Count]

		if chunk.Count == 1 {
			n, err := o.pread(ctx, ioctx, group[0])
			if err != nil {
				return nil, 0, Error, err
			}
			results[offset].Size = uint64(n)
			total += n
			offset += chunk.Count
			continue
		}

		req, err := ioctx.NewRequest(ctx)
		if err != nil {
			return nil, 0, Error, errTransport(err)
		}
		req.SetParameters(ioctx.RequestParameters())
		req.AddHeaderField("Range", "bytes="+chunk.Value)

		outcome, partial, partialTotal, err := o.handleMultirangeResponse(ctx, req, group, inputs, totalRequested)
		req.EndRequest()
		if err != nil {
			return nil, 0, Error, err
		}

		switch outcome {
		case Success:
			for i, r := range partial {
				results[offset+i] = r
			}
			total += partialTotal
			offset += chunk.Count
			continue
		case SuccessButWholeFile:
			// The whole-file scatter already covers every original
			// input, not just this chunk's group; stop immediately.
			return partial, partialTotal, SuccessButWholeFile, nil
		default: // NoMultirangeSupported
			return nil, 0, NoMultirangeSupported, nil
		}
	}

	return results, total, Success, nil
}

// handleMultirangeResponse inspects one Range-header GET's status code and
// dispatches to MultipartBodyRouter (206), FullBodyScatterer (200, subject
// to the size guard), or maps any other code to a fatal HTTPCodeError.
func (o *VectorReadOrchestrator) handleMultirangeResponse(ctx context.Context, req HTTPRequest, group, allInputs []RangeRequest, totalRequested uint64) (Outcome, []RangeResult, int64, error) {
	if err := req.BeginRequest(ctx); err != nil {
		return Error, nil, 0, errTransport(err)
	}

	switch req.StatusCode() {
	case 206:
		results, total, err := routeMultipartBody(o.cfg.logger, req, group)
		if err != nil {
			if errors.Is(err, errFallbackToSingleRange) {
				return NoMultirangeSupported, nil, 0, nil
			}
			return Error, nil, 0, err
		}
		return Success, results, total, nil

	case 200:
		answerSize := req.AnswerSize()
		if answerSize > o.cfg.sizeGuardMinBytes && answerSize > o.cfg.sizeGuardRatio*int64(totalRequested) {
			o.cfg.logger.Debug("200 response too large for requested bytes, bailing out of full-body scatter",
				"answer_size", answerSize, "requested", totalRequested)
			return NoMultirangeSupported, nil, 0, nil
		}
		o.cfg.logger.Debug("server ignored Range header, simulating multipart from full body")
		results, total, err := scatterFullBody(req, allInputs)
		if err != nil {
			return Error, nil, 0, err
		}
		return SuccessButWholeFile, results, total, nil

	default:
		return Error, nil, 0, errHTTPCode(req.StatusCode())
	}
}

// simulateMultirange issues N single-range pread calls, one at a time, on
// the caller's goroutine. spec.md section 5 binds preadVec to a single
// caller thread issuing HTTP requests sequentially over one connection
// drawn from the external HTTP layer; this mirrors the original
// implementation's sequential simulateMultirange loop exactly. The Throttle
// only paces the gap between successive requests (via cfg.fallbackRateHz),
// it does not introduce concurrency.
func (o *VectorReadOrchestrator) simulateMultirange(ctx context.Context, ioctx IOChainContext, inputs []RangeRequest) ([]RangeResult, int64, error) {
	results := make([]RangeResult, len(inputs))
	for i, in := range inputs {
		results[i].Buffer = in.Buffer
	}

	throttle := ratelimit.New(o.cfg.fallbackRateHz, 1)

	var total int64
	for i, in := range inputs {
		if err := throttle.Wait(ctx, 1); err != nil {
			return nil, 0, err
		}
		n, err := o.pread(ctx, ioctx, in)
		if err != nil {
			return nil, 0, err
		}
		results[i].Size = uint64(n)
		total += n
	}
	return results, total, nil
}

// pread performs one single-range read through the IOChainContext's
// fallback primitive.
func (o *VectorReadOrchestrator) pread(ctx context.Context, ioctx IOChainContext, in RangeRequest) (int64, error) {
	n, err := ioctx.Pread(ctx, in.Buffer[:in.Size], in.Size, in.Offset)
	if err != nil {
		return 0, errTransport(err)
	}
	return n, nil
}
