package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/pointsjourney/internal/bankapi"
	"github.com/roach88/pointsjourney/internal/identity"
	"github.com/roach88/pointsjourney/internal/logging"
)

// Options configures a Runner. Zero values select the defaults.
type Options struct {
	// Identities generates the identity pair. Defaults to a RandomGenerator.
	Identities identity.Generator

	// Amounts seeds the ledger values. Defaults to DefaultAmounts.
	Amounts *Amounts

	// FailFast aborts the run at the first failed step. Without it a failed
	// assertion fails its step and the run moves on, as long as the next
	// step's inputs are available.
	FailFast bool

	// Logger receives one record per step. Defaults to a discard logger.
	Logger *slog.Logger

	// RunID generates run identifiers. Defaults to UUIDv7.
	RunID func() string

	// Now is the wall clock used for timestamps and durations.
	Now func() time.Time
}

// Runner executes scenarios against one service.
//
// Steps run strictly in order on the calling goroutine; each awaits the
// previous response because its inputs come from earlier outputs.
type Runner struct {
	client *bankapi.Client
	ids    identity.Generator
	amts   Amounts
	fail   bool
	logger *slog.Logger
	runID  func() string
	now    func() time.Time
}

// NewRunner builds a Runner around client.
func NewRunner(client *bankapi.Client, opts Options) *Runner {
	r := &Runner{
		client: client,
		ids:    opts.Identities,
		amts:   DefaultAmounts(),
		fail:   opts.FailFast,
		logger: opts.Logger,
		runID:  opts.RunID,
		now:    opts.Now,
	}
	if r.ids == nil {
		r.ids = identity.NewRandomGenerator()
	}
	if opts.Amounts != nil {
		r.amts = *opts.Amounts
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	if r.runID == nil {
		r.runID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// run holds the mutable state of one scenario execution.
type run struct {
	scenario  *Scenario
	state     *State
	clock     *Clock
	result    *Result
	producers map[string]string
}

// Run executes every step of scenario once, in order, and returns the
// outcome. Step failures are reported in the Result; the returned error is
// non-nil only when the scenario itself is unusable.
//
// Execution flow:
//  1. Generate the identity pair and seed the state
//  2. For each step: check dependencies, resolve templates, call the service,
//     evaluate the expect clause, apply captures
//  3. After a dependency failure, transport failure or (with FailFast) any
//     failed step, mark the remaining steps skipped
func (r *Runner) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, errors.New("scenario is nil")
	}
	if err := ValidateScenario(scenario); err != nil {
		return nil, err
	}

	primary, recipient := r.ids.Pair()
	rn := &run{
		scenario:  scenario,
		state:     SeedState(primary, recipient, r.amts),
		clock:     NewClock(),
		result:    NewResult(r.runID(), scenario.Name),
		producers: scenario.producers(),
	}
	rn.result.StartedAt = r.now()

	r.logger.Info("journey started",
		slog.String("run_id", rn.result.RunID),
		slog.String("scenario", scenario.Name),
		slog.String("base_url", r.client.BaseURL()),
		slog.String("primary_cpf", primary.CPF),
		slog.String("primary_email", primary.Email),
		slog.String("recipient_cpf", recipient.CPF),
	)

	aborted := false
	for i := range scenario.Steps {
		step := &scenario.Steps[i]
		if aborted {
			rn.result.AddStep(StepResult{Index: i, Name: step.Name, Call: step.Call, Status: StepSkipped})
			r.logger.Warn("step skipped", slog.Int("step", i+1), slog.String("name", step.Name))
			continue
		}

		sr, abort := r.runStep(ctx, rn, i, step)
		rn.result.AddStep(sr)
		for _, e := range sr.Errors {
			rn.result.AddError(e)
		}
		if abort || (r.fail && !sr.Passed()) {
			aborted = true
		}
	}

	rn.result.FinishedAt = r.now()
	passed, failed, skipped := rn.result.Counts()
	r.logger.Info("journey finished",
		slog.String("run_id", rn.result.RunID),
		slog.Bool("pass", rn.result.Pass),
		slog.Int("passed", passed),
		slog.Int("failed", failed),
		slog.Int("skipped", skipped),
		slog.Duration("elapsed", rn.result.FinishedAt.Sub(rn.result.StartedAt)),
	)
	return rn.result, nil
}

// runStep executes one step. The bool result asks the caller to abort.
func (r *Runner) runStep(ctx context.Context, rn *run, index int, step *Step) (StepResult, bool) {
	start := r.now()
	sr := StepResult{Index: index, Name: step.Name, Call: step.Call}
	fail := func(err error) StepResult {
		sr.Status = StepFailed
		sr.Errors = append(sr.Errors, err.Error())
		sr.Duration = r.now().Sub(start)
		return sr
	}

	if missing := rn.state.Missing(requiredKeys(step)); len(missing) > 0 {
		depErr := &DependencyError{Step: step.Name, Missing: missing, Producers: map[string]string{}}
		for _, key := range missing {
			depErr.Producers[key] = rn.producers[key]
		}
		r.logger.Error("step dependency missing",
			slog.Int("step", index+1),
			slog.String("name", step.Name),
			slog.Any("missing", missing),
			slog.Any("available", rn.state.Keys()),
		)
		return fail(depErr), true
	}

	args, err := rn.state.ResolveMap(step.Args)
	if err != nil {
		return fail(fmt.Errorf("step %s: resolve args: %w", step.Name, err)), true
	}
	expect := step.Expect
	if expect.Fields, err = rn.state.ResolveMap(step.Expect.Fields); err != nil {
		return fail(fmt.Errorf("step %s: resolve expect: %w", step.Name, err)), true
	}

	rn.result.Trace = append(rn.result.Trace, TraceEvent{
		Seq:  rn.clock.Next(),
		Step: step.Name,
		Type: EventRequest,
		Call: step.Call,
		Args: redactArgs(args),
	})

	spec := calls[step.Call]
	token := ""
	if spec.authorized {
		token = rn.state.String(KeySessionToken)
	}

	resp, err := spec.fn(ctx, r.client, token, args)
	if err != nil {
		// Either a TransportError or an argument that did not convert; both
		// leave later steps without the inputs they expect.
		r.logger.Error("step call failed",
			slog.Int("step", index+1),
			slog.String("name", step.Name),
			slog.Bool("transport", errors.As(err, new(*bankapi.TransportError))),
			slog.String("error", err.Error()),
		)
		return fail(fmt.Errorf("step %s: %w", step.Name, err)), true
	}
	sr.HTTPStatus = resp.Status

	rn.result.Trace = append(rn.result.Trace, TraceEvent{
		Seq:    rn.clock.Next(),
		Step:   step.Name,
		Type:   EventResponse,
		Status: resp.Status,
		Body:   redact(resp.Value()),
	})

	failures := EvaluateExpect(step.Name, expect, resp)
	for _, f := range failures {
		sr.Errors = append(sr.Errors, f.Error())
	}

	r.applyCaptures(rn, step, resp)

	sr.Duration = r.now().Sub(start)
	if len(failures) == 0 {
		sr.Status = StepPassed
	} else {
		sr.Status = StepFailed
	}

	level := slog.LevelInfo
	if !sr.Passed() {
		level = slog.LevelError
	}
	r.logger.Log(ctx, level, "step completed",
		slog.Int("step", index+1),
		slog.String("name", step.Name),
		slog.String("call", step.Call),
		slog.Int("status", resp.Status),
		slog.Bool("pass", sr.Passed()),
		slog.Duration("elapsed", sr.Duration),
	)
	for _, f := range failures {
		r.logger.Error("assertion failed",
			slog.String("name", step.Name),
			slog.String("check", f.Check),
			slog.String("expected", f.Expected),
			slog.String("actual", f.Actual),
		)
	}

	return sr, false
}

// applyCaptures copies present, non-empty response fields into the state.
func (r *Runner) applyCaptures(rn *run, step *Step, resp *bankapi.Response) {
	for field, key := range step.Capture {
		v, ok := resp.Field(field)
		if !ok || isEmpty(v) {
			r.logger.Warn("capture field absent",
				slog.String("name", step.Name),
				slog.String("field", field),
				slog.String("key", key),
			)
			continue
		}
		rn.state.Set(key, v)

		if key == KeySessionToken {
			if claims, err := bankapi.DecodeSessionToken(rn.state.String(key)); err == nil {
				r.logger.Debug("session token issued",
					slog.String("subject", claims.Subject),
					slog.Time("expires_at", claims.ExpiresAt),
				)
			}
		}
	}
}

func redactArgs(args map[string]any) any {
	if len(args) == 0 {
		return nil
	}
	return redact(args)
}
