package cookiedomain

import "errors"

var (
	// ErrConfiguration is returned for a negative depth or an unreadable suffix list.
	ErrConfiguration = errors.New("cookie domain: improperly configured")

	// ErrNoPublicSuffix is returned by SuffixList.Split for hosts that are not
	// under a listed public suffix, such as IP literals and local names.
	ErrNoPublicSuffix = errors.New("cookie domain: no public suffix")

	// ErrNoRegistrableDomain is returned by SuffixList.Split for hosts that are a
	// public suffix themselves.
	ErrNoRegistrableDomain = errors.New("cookie domain: host is a public suffix")
)
