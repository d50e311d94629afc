package models

import (
	"strings"
	"time"
)

// ResourceSpec describes a single resource as declared in the resource
// descriptor. Specs are turned into registered resources exactly once,
// at startup.
type ResourceSpec struct {
	Name            string        `json:"name" yaml:"name"`
	Description     string        `json:"description" yaml:"description"`
	Endpoint        string        `json:"endpoint" yaml:"endpoint"`
	Tags            string        `json:"tags" yaml:"tags"`
	MaxLockDuration time.Duration `json:"maxLockDuration" yaml:"maxLockDuration"`
}

// Resource is a single automation resource in the pool. A resource is locked
// exactly when LockToken is non-empty, in which case LockAcquiredAt and
// LockExpiresAt are both set.
type Resource struct {
	// ID is assigned at registration, starting at 1, and is never reused.
	ID int

	// Name is a unique human-readable alias for the resource.
	Name string

	Description string

	// Endpoint is an opaque address clients use to reach the resource
	// (e.g. "tcp://192.168.1.50"). The coordinator never dials it.
	Endpoint string

	// Tags is the comma-delimited tag list from the descriptor. Use TagSet
	// for matching.
	Tags string

	// LockToken is the credential required to unlock or extend. Empty when
	// the resource is available.
	LockToken string

	// LockDetails is a human-readable note about the current lock state,
	// kept for operators and the audit trail.
	LockDetails string

	LockAcquiredAt *time.Time
	LockExpiresAt  *time.Time

	// MaxLockDuration is the ceiling on any single lease, initial or
	// extended, for this resource.
	MaxLockDuration time.Duration
}

// Locked reports whether the resource currently holds a lease.
func (r *Resource) Locked() bool {
	return r.LockToken != ""
}

// TagSet parses the comma-delimited tag list into a set. Whitespace around
// tags is ignored, empty entries are dropped.
func (r *Resource) TagSet() map[string]struct{} {
	set := make(map[string]struct{})

	for _, tag := range strings.Split(r.Tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			set[tag] = struct{}{}
		}
	}

	return set
}

// MatchesTags reports whether the resource's tag set is a superset of the
// requested tags. A resource without tags never matches.
func (r *Resource) MatchesTags(tags []string) bool {
	if len(tags) == 0 {
		return false
	}

	set := r.TagSet()

	if len(set) == 0 {
		return false
	}

	for _, tag := range tags {
		if _, ok := set[strings.TrimSpace(tag)]; !ok {
			return false
		}
	}

	return true
}

// Clone returns a deep copy of the resource, safe to hand to callers outside
// the registry's critical section.
func (r *Resource) Clone() *Resource {
	clone := *r

	if r.LockAcquiredAt != nil {
		t := *r.LockAcquiredAt
		clone.LockAcquiredAt = &t
	}

	if r.LockExpiresAt != nil {
		t := *r.LockExpiresAt
		clone.LockExpiresAt = &t
	}

	return &clone
}
