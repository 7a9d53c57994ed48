package health

import (
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/novaroute/router/catalog"
)

// ProviderMutator is the subset of catalog.Registry the Tracker needs to
// apply a classification's policy. Narrowed to an interface so the Tracker
// can be tested without a real database.
type ProviderMutator interface {
	MarkProviderExhausted(providerID string, until time.Time) error
	MarkProviderHealthy(providerID string) error
	IncrementProviderFailures(providerID string) error
}

var _ ProviderMutator = (*catalog.Registry)(nil)

// Tracker applies the policy column of spec.md §4.2's table: given a
// provider id and either a successful response or an error string, it
// mutates ProviderStatus accordingly and reports whether the caller should
// keep iterating the chain.
type Tracker struct {
	registry ProviderMutator
	cooldown time.Duration
	logger   *zap.Logger

	// exhaustedUntil caches, per provider id, the unix-nano timestamp the
	// last RecordFailure wrote to the registry. Concurrent goroutines
	// hammering the same exhausted provider skip the redundant registry
	// write once this process has already recorded it for the current
	// cooldown window.
	exhaustedUntil sync.Map // providerID string -> *atomic.Int64
}

// DefaultCooldown is spec.md §4.2's stated default quota cooldown.
const DefaultCooldown = 60 * time.Minute

// NewTracker constructs a Tracker. cooldown<=0 uses DefaultCooldown —
// spec.md §9 Open Questions resolves the cooldown duration to be
// configuration (see RouterConfig.QuotaCooldown).
func NewTracker(registry ProviderMutator, cooldown time.Duration, logger *zap.Logger) *Tracker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Tracker{registry: registry, cooldown: cooldown, logger: logger}
}

// Outcome tells the Simple Router what to do next after dispatching one
// adapter call.
type Outcome struct {
	Class     Class
	Abort     bool // true for ClassBadRequest: do not try other providers
}

// RecordSuccess clears failure state for providerID.
func (t *Tracker) RecordSuccess(providerID string) error {
	t.exhaustedUntil.Delete(providerID)
	return t.registry.MarkProviderHealthy(providerID)
}

// RecordFailure classifies errMsg and applies the corresponding mutation,
// returning the Outcome the Simple Router should act on.
func (t *Tracker) RecordFailure(providerID, errMsg string) (Outcome, error) {
	class := Classify(errMsg)
	switch class {
	case ClassQuota:
		now := time.Now()
		if v, ok := t.exhaustedUntil.Load(providerID); ok && v.(*atomic.Int64).Load() > now.UnixNano() {
			return Outcome{Class: class}, nil
		}
		until := now.Add(t.cooldown)
		if err := t.registry.MarkProviderExhausted(providerID, until); err != nil {
			return Outcome{Class: class}, err
		}
		counter, _ := t.exhaustedUntil.LoadOrStore(providerID, atomic.NewInt64(0))
		counter.(*atomic.Int64).Store(until.UnixNano())
		t.logger.Info("provider marked exhausted",
			zap.String("provider", providerID), zap.Time("until", until))
		return Outcome{Class: class}, nil
	case ClassBadRequest:
		// No failure-counter mutation: the request itself is malformed,
		// not the provider's fault.
		return Outcome{Class: class, Abort: true}, nil
	default:
		if err := t.registry.IncrementProviderFailures(providerID); err != nil {
			return Outcome{Class: class}, err
		}
		return Outcome{Class: class}, nil
	}
}
