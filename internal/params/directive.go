package params

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Tier selects which cache store a CacheDirective is routed to.
type Tier string

const (
	// TierFrozen is the process-lifetime store: first writer wins, no eviction.
	TierFrozen Tier = "frozen"

	// TierTimed is the per-process store with mandatory expiration.
	TierTimed Tier = "timed"

	// TierDistributed is the network-attached store with optional TTL.
	TierDistributed Tier = "distributed"
)

// ParseTier parses a tier name as accepted by the CLI and config file.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierFrozen, TierTimed, TierDistributed:
		return Tier(s), nil
	}
	return "", argErrorf("tier", "unknown cache tier %q", s)
}

// CacheDirective routes one call's result to a cache tier under a key.
//
// Invariants (checked by Validate, and by Builder.Build for attached directives):
//   - TierTimed requires an expiration.
//   - TierFrozen forbids an expiration.
//   - TierDistributed expiration is optional; absent means no TTL.
//
// The zero value is not a valid directive.
type CacheDirective struct {
	tier          Tier
	key           string
	expiration    time.Duration
	hasExpiration bool
}

// Frozen returns a directive for the process-lifetime store.
func Frozen(key string) CacheDirective {
	return CacheDirective{tier: TierFrozen, key: norm.NFC.String(key)}
}

// Timed returns a directive for the in-memory store, expiring ttl after each store.
// A ttl of zero makes the stored value immediately stale.
func Timed(key string, ttl time.Duration) CacheDirective {
	return CacheDirective{tier: TierTimed, key: norm.NFC.String(key), expiration: ttl, hasExpiration: true}
}

// Distributed returns a directive for the network-attached store without a TTL.
func Distributed(key string) CacheDirective {
	return CacheDirective{tier: TierDistributed, key: norm.NFC.String(key)}
}

// DistributedTTL returns a directive for the network-attached store with a TTL.
func DistributedTTL(key string, ttl time.Duration) CacheDirective {
	return CacheDirective{tier: TierDistributed, key: norm.NFC.String(key), expiration: ttl, hasExpiration: true}
}

// NewCacheDirective builds and validates a directive. A nil expiration means
// "absent".
func NewCacheDirective(tier Tier, key string, expiration *time.Duration) (CacheDirective, error) {
	d := CacheDirective{tier: tier, key: norm.NFC.String(key)}
	if expiration != nil {
		d.expiration, d.hasExpiration = *expiration, true
	}
	if err := d.Validate(); err != nil {
		return CacheDirective{}, err
	}
	return d, nil
}

// Validate checks the tier/expiration invariants. The returned error is an
// *ArgumentError.
func (d CacheDirective) Validate() error {
	if d.key == "" {
		return argErrorf("cache.key", "must not be empty")
	}
	if d.hasExpiration && d.expiration < 0 {
		return argErrorf("cache.expiration", "must not be negative, got %s", d.expiration)
	}

	switch d.tier {
	case TierFrozen:
		if d.hasExpiration {
			return argErrorf("cache.expiration", "frozen entries never expire")
		}
	case TierTimed:
		if !d.hasExpiration {
			return argErrorf("cache.expiration", "timed entries require an expiration")
		}
	case TierDistributed:
	default:
		return argErrorf("cache.tier", "unknown cache tier %q", d.tier)
	}
	return nil
}

// Tier returns the tier the directive routes to.
func (d CacheDirective) Tier() Tier { return d.tier }

// Key returns the NFC-normalized cache key.
func (d CacheDirective) Key() string { return d.key }

// Expiration returns the TTL and whether one is present.
func (d CacheDirective) Expiration() (time.Duration, bool) {
	return d.expiration, d.hasExpiration
}

// IsZero reports whether d is the zero (invalid) directive.
func (d CacheDirective) IsZero() bool { return d == CacheDirective{} }

// String renders the directive in the CLI's "tier:key[:ttl]" form.
func (d CacheDirective) String() string {
	if d.hasExpiration {
		return fmt.Sprintf("%s:%s:%s", d.tier, d.key, d.expiration)
	}
	return fmt.Sprintf("%s:%s", d.tier, d.key)
}

// ParseDirective parses the "tier:key[:ttl]" form used on the command line,
// e.g. "frozen:users", "timed:users:30s", "distributed:users:5m".
func ParseDirective(s string) (CacheDirective, error) {
	tierName, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return CacheDirective{}, argErrorf("cache", "expected tier:key[:ttl], got %q", s)
	}
	tier, err := ParseTier(tierName)
	if err != nil {
		return CacheDirective{}, err
	}

	key := rest
	var ttl *time.Duration
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		if d, err := time.ParseDuration(rest[i+1:]); err == nil {
			key, ttl = rest[:i], &d
		}
	}
	return NewCacheDirective(tier, key, ttl)
}
