package cookiedomain

import (
	"errors"
	"fmt"
	"os"
	"strings"

	wepposps "github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/net/publicsuffix"

	"github.com/dmitrymomot/multisite/pkg/netloc"
)

// Parts is a host split at its public suffix.
type Parts struct {
	// Subdomain holds the labels left of Domain, possibly empty.
	Subdomain string
	// Domain is the registrable label directly left of Suffix.
	Domain string
	// Suffix is the public suffix, e.g. "co.uk".
	Suffix string
}

// Registrable returns Domain + "." + Suffix.
func (p Parts) Registrable() string {
	return p.Domain + "." + p.Suffix
}

// SubdomainLabels returns the subdomain split into labels.
func (p Parts) SubdomainLabels() []string {
	if p.Subdomain == "" {
		return nil
	}
	return strings.Split(p.Subdomain, ".")
}

// SuffixList splits host names at their public suffix.
type SuffixList interface {
	// Split returns ErrNoPublicSuffix or ErrNoRegistrableDomain when host
	// cannot carry a cookie domain.
	Split(host string) (Parts, error)
}

// Builtin uses the table compiled into golang.org/x/net/publicsuffix.
type Builtin struct {
	// IncludePrivate keeps private rules such as "github.io". Only ICANN rules
	// are used otherwise.
	IncludePrivate bool
}

// Split implements SuffixList.
func (b Builtin) Split(host string) (Parts, error) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || netloc.IsIP(host) {
		return Parts{}, ErrNoPublicSuffix
	}

	suffix, icann := publicsuffix.PublicSuffix(host)
	if !icann && !b.IncludePrivate {
		suffix, icann = icannSuffix(suffix)
	}
	// Unlisted names fall under the implicit "*" rule, which reports a
	// single-label non-ICANN suffix.
	if !icann && !strings.Contains(suffix, ".") {
		return Parts{}, ErrNoPublicSuffix
	}

	return split(host, suffix)
}

// icannSuffix strips labels off a private suffix until an ICANN rule matches.
func icannSuffix(suffix string) (string, bool) {
	icann := false
	for !icann && strings.Contains(suffix, ".") {
		parent := suffix[strings.IndexByte(suffix, '.')+1:]
		suffix, icann = publicsuffix.PublicSuffix(parent)
	}
	return suffix, icann
}

// FileList uses a Public Suffix List data file parsed with
// github.com/weppos/publicsuffix-go.
type FileList struct {
	list           *wepposps.List
	includePrivate bool
}

// LoadFile parses the list stored at path.
func LoadFile(path string, includePrivate bool) (*FileList, error) {
	list, err := wepposps.NewListFromFile(path, &wepposps.ParserOption{PrivateDomains: true})
	if err != nil {
		return nil, fmt.Errorf("%w: load public suffix list %q: %v", ErrConfiguration, path, err)
	}
	return &FileList{list: list, includePrivate: includePrivate}, nil
}

// Split implements SuffixList.
func (f *FileList) Split(host string) (Parts, error) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || netloc.IsIP(host) {
		return Parts{}, ErrNoPublicSuffix
	}

	dn, err := wepposps.ParseFromListWithOptions(f.list, host, &wepposps.FindOptions{
		IgnorePrivate: !f.includePrivate,
	})
	if err != nil {
		if f.list.Find(host, &wepposps.FindOptions{IgnorePrivate: !f.includePrivate}) == nil {
			return Parts{}, ErrNoPublicSuffix
		}
		return Parts{}, ErrNoRegistrableDomain
	}
	if dn.SLD == "" {
		return Parts{}, ErrNoRegistrableDomain
	}
	return Parts{Subdomain: dn.TRD, Domain: dn.SLD, Suffix: dn.TLD}, nil
}

// LoadSuffixList returns a FileList when path names an existing file and the
// built-in table otherwise.
func LoadSuffixList(path string, includePrivate bool) (SuffixList, error) {
	if path == "" {
		return Builtin{IncludePrivate: includePrivate}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Builtin{IncludePrivate: includePrivate}, nil
		}
		return nil, fmt.Errorf("%w: stat public suffix list: %v", ErrConfiguration, err)
	}
	return LoadFile(path, includePrivate)
}

func split(host, suffix string) (Parts, error) {
	if host == suffix {
		return Parts{}, ErrNoRegistrableDomain
	}
	rest := strings.TrimSuffix(host, "."+suffix)
	if rest == host || rest == "" {
		return Parts{}, ErrNoRegistrableDomain
	}

	p := Parts{Suffix: suffix, Domain: rest}
	if i := strings.LastIndexByte(rest, '.'); i >= 0 {
		p.Subdomain, p.Domain = rest[:i], rest[i+1:]
	}
	return p, nil
}
