package inventory

import (
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
)

// Freshness is the derived shelf-life state of a batch
type Freshness string

const (
	FreshnessGood     Freshness = "GOOD"
	FreshnessWarning  Freshness = "WARNING"
	FreshnessCritical Freshness = "CRITICAL"
	FreshnessExpired  Freshness = "EXPIRED"
)

// Severity orders freshness states from best (0) to worst (3)
func (f Freshness) Severity() int {
	switch f {
	case FreshnessWarning:
		return 1
	case FreshnessCritical:
		return 2
	case FreshnessExpired:
		return 3
	default:
		return 0
	}
}

// WorstFreshness returns the most severe state, GOOD for an empty input
func WorstFreshness(states ...Freshness) Freshness {
	worst := FreshnessGood
	for _, s := range states {
		if s.Severity() > worst.Severity() {
			worst = s
		}
	}
	return worst
}

// FreshnessThresholds configures both classification regimes.
// Expiry thresholds are time remaining before ExpiryAt; age thresholds
// are time elapsed since ReceivedAt for batches without an expiry.
type FreshnessThresholds struct {
	ExpiryCritical time.Duration
	ExpiryWarning  time.Duration
	AgeWarning     time.Duration
	AgeCritical    time.Duration
	AgeExpired     time.Duration
}

// DefaultFreshnessThresholds returns the dairy defaults: 12h/24h before
// expiry, and 24h/36h/48h of age for undated stock.
func DefaultFreshnessThresholds() FreshnessThresholds {
	return FreshnessThresholds{
		ExpiryCritical: 12 * time.Hour,
		ExpiryWarning:  24 * time.Hour,
		AgeWarning:     24 * time.Hour,
		AgeCritical:    36 * time.Hour,
		AgeExpired:     48 * time.Hour,
	}
}

// Validate checks that thresholds are positive and ordered
func (t FreshnessThresholds) Validate() error {
	if t.ExpiryCritical <= 0 || t.ExpiryWarning <= t.ExpiryCritical {
		return shared.NewDomainError(shared.CodeValidationFailed, "expiry thresholds must satisfy 0 < critical < warning")
	}
	if t.AgeWarning <= 0 || t.AgeCritical <= t.AgeWarning || t.AgeExpired <= t.AgeCritical {
		return shared.NewDomainError(shared.CodeValidationFailed, "age thresholds must satisfy 0 < warning < critical < expired")
	}
	return nil
}

// FreshnessClassifier maps a batch and an instant to a Freshness.
// It never mutates the batch.
type FreshnessClassifier struct {
	thresholds FreshnessThresholds
}

// NewFreshnessClassifier creates a classifier with the given thresholds
func NewFreshnessClassifier(thresholds FreshnessThresholds) *FreshnessClassifier {
	return &FreshnessClassifier{thresholds: thresholds}
}

// Thresholds returns the configured thresholds
func (c *FreshnessClassifier) Thresholds() FreshnessThresholds {
	return c.thresholds
}

// Classify returns the freshness of b at now. EXPIRED status is sticky.
func (c *FreshnessClassifier) Classify(b *Batch, now time.Time) Freshness {
	if b.Status == BatchStatusExpired {
		return FreshnessExpired
	}

	if b.ExpiryAt != nil {
		remaining := b.ExpiryAt.Sub(now)
		switch {
		case remaining <= 0:
			return FreshnessExpired
		case remaining <= c.thresholds.ExpiryCritical:
			return FreshnessCritical
		case remaining <= c.thresholds.ExpiryWarning:
			return FreshnessWarning
		default:
			return FreshnessGood
		}
	}

	age := now.Sub(b.ReceivedAt)
	switch {
	case age >= c.thresholds.AgeExpired:
		return FreshnessExpired
	case age >= c.thresholds.AgeCritical:
		return FreshnessCritical
	case age >= c.thresholds.AgeWarning:
		return FreshnessWarning
	default:
		return FreshnessGood
	}
}

// EffectiveExpiry is ExpiryAt when set, otherwise the instant the batch
// ages out.
func (c *FreshnessClassifier) EffectiveExpiry(b *Batch) time.Time {
	if b.ExpiryAt != nil {
		return *b.ExpiryAt
	}
	return b.ReceivedAt.Add(c.thresholds.AgeExpired)
}

// ClassifyFreshness classifies with the default thresholds
func ClassifyFreshness(b *Batch, now time.Time) Freshness {
	return NewFreshnessClassifier(DefaultFreshnessThresholds()).Classify(b, now)
}
