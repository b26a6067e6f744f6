package tenant

import (
	"fmt"
	"math"
	"strconv"
	"sync"
)

// IDer is implemented by records that belong to or are a tenant.
type IDer interface {
	TenantID() int64
}

// DomainLookup resolves a domain name to a tenant id.
type DomainLookup func(domain string) (int64, error)

// Current is the mutable "current tenant id" of one unit of work, usually a
// request. It is carried in a context.Context (see WithCurrent) and must never
// be shared between requests; Fork creates a fresh cell with the same default.
//
// Get returns the explicit value, else the default, else ErrNotConfigured.
type Current struct {
	mu    sync.Mutex
	value int64
	set   bool
	def   *defaultID
}

// defaultID is shared between forks so a domain-based default is resolved once.
type defaultID struct {
	mu     sync.Mutex
	id     int64
	ok     bool
	domain string
	lookup DomainLookup
}

func (d *defaultID) get() (int64, error) {
	if d == nil {
		return 0, ErrNotConfigured
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ok {
		return d.id, nil
	}
	if d.lookup == nil {
		return 0, ErrNotConfigured
	}

	id, err := d.lookup(d.domain)
	if err != nil {
		return 0, fmt.Errorf("resolve default tenant %q: %w", d.domain, err)
	}
	d.id, d.ok = id, true
	return id, nil
}

// NewCurrent returns a cell without default.
func NewCurrent() *Current {
	return &Current{}
}

// NewCurrentWithDefault returns a cell that falls back to id when unset.
func NewCurrentWithDefault(id int64) *Current {
	return &Current{def: &defaultID{id: id, ok: true}}
}

// NewCurrentWithDomain returns a cell whose default is the tenant serving domain,
// resolved with lookup on first use. Failed lookups are retried on the next call.
func NewCurrentWithDomain(domain string, lookup DomainLookup) (*Current, error) {
	if domain == "" || lookup == nil {
		return nil, fmt.Errorf("%w: default domain and lookup are required", ErrConfiguration)
	}
	return &Current{def: &defaultID{domain: domain, lookup: lookup}}, nil
}

// Fork returns an unset cell sharing c's default.
func (c *Current) Fork() *Current {
	if c == nil {
		return NewCurrent()
	}
	return &Current{def: c.def}
}

// Default returns the default id.
func (c *Current) Default() (int64, error) {
	return c.def.get()
}

// HasDefault reports whether a default was configured.
func (c *Current) HasDefault() bool {
	return c.def != nil
}

// Get returns the current tenant id.
func (c *Current) Get() (int64, error) {
	c.mu.Lock()
	value, set := c.value, c.set
	c.mu.Unlock()

	if set {
		return value, nil
	}
	return c.def.get()
}

// IsSet reports whether an explicit value is present.
func (c *Current) IsSet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set
}

// Set replaces the explicit value. v may be any integer type, an IDer such as
// *Tenant, or another *Current whose effective value is copied. A nil v resets.
func (c *Current) Set(v any) error {
	if v == nil {
		c.Reset()
		return nil
	}

	id, err := toID(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.value, c.set = id, true
	c.mu.Unlock()
	return nil
}

// Reset removes the explicit value so the default applies again.
func (c *Current) Reset() {
	c.mu.Lock()
	c.value, c.set = 0, false
	c.mu.Unlock()
}

// Override sets v and returns a func restoring the previous state. Overrides nest;
// each restore must be deferred so the state comes back on every exit path.
// Calling restore more than once has no further effect.
func (c *Current) Override(v any) (restore func(), err error) {
	c.mu.Lock()
	prevValue, prevSet := c.value, c.set
	c.mu.Unlock()

	if err := c.Set(v); err != nil {
		return func() {}, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.value, c.set = prevValue, prevSet
			c.mu.Unlock()
		})
	}, nil
}

// Do runs fn with v as the current tenant and restores the previous state
// afterwards, also when fn panics.
func (c *Current) Do(v any, fn func() error) error {
	restore, err := c.Override(v)
	if err != nil {
		return err
	}
	defer restore()
	return fn()
}

// Equal compares the effective value with an integer or another *Current. Any
// other operand is never equal. Two unconfigured cells are equal.
func (c *Current) Equal(other any) bool {
	return c.compare(other) == 0
}

// Compare orders the effective value against an integer or another *Current and
// returns -1, 0 or +1. Any other operand sorts after the cell, so Compare returns
// -1. An unconfigured cell sorts before every configured value.
func (c *Current) Compare(other any) int {
	r := c.compare(other)
	if r == incomparable {
		return -1
	}
	return r
}

const incomparable = math.MinInt

func (c *Current) compare(other any) int {
	var (
		b   int64
		bOK bool
	)
	switch o := other.(type) {
	case *Current:
		if o == nil {
			return incomparable
		}
		id, err := o.Get()
		b, bOK = id, err == nil
	default:
		id, ok := intValue(other)
		if !ok {
			return incomparable
		}
		b, bOK = id, true
	}

	a, err := c.Get()
	aOK := err == nil

	switch {
	case !aOK && !bOK:
		return 0
	case !aOK:
		return -1
	case !bOK:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Int returns the effective value and panics with ErrNotConfigured when there is none.
func (c *Current) Int() int64 {
	id, err := c.Get()
	if err != nil {
		panic(err)
	}
	return id
}

func (c *Current) String() string {
	id, err := c.Get()
	if err != nil {
		return "<unset>"
	}
	return strconv.FormatInt(id, 10)
}

func toID(v any) (int64, error) {
	if id, ok := intValue(v); ok {
		return id, nil
	}

	switch t := v.(type) {
	case *Current:
		if t == nil {
			return 0, fmt.Errorf("%w: nil *Current", ErrInvalidTenantID)
		}
		return t.Get()
	case IDer:
		if isNilIDer(t) {
			return 0, fmt.Errorf("%w: nil %T", ErrInvalidTenantID, v)
		}
		return t.TenantID(), nil
	}

	switch v.(type) {
	case uint, uint64:
		return 0, fmt.Errorf("%w: %v overflows int64", ErrInvalidTenantID, v)
	}
	return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidTenantID, v)
}

func isNilIDer(v IDer) bool {
	t, ok := v.(*Tenant)
	return ok && t == nil
}

func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}
