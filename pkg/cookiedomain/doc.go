// Package cookiedomain scopes cookies to the domain family of the request host.
//
// Responses that set cookies without a Domain attribute get one derived from
// the request host: the registrable domain (".example.co.uk") at depth 0, or
// the last Depth subdomain labels plus the registrable domain otherwise. Hosts
// without a public suffix (IP literals, "localhost") and bare public suffixes
// are left alone, as are hosts with fewer subdomain labels than Depth.
//
// Public suffix data comes from golang.org/x/net/publicsuffix unless a list file
// exists at Config.PublicSuffixListCache, in which case it is parsed with
// github.com/weppos/publicsuffix-go. Downloading that file is left to the
// deployment.
//
//	mw, err := cookiedomain.Middleware(cookiedomain.Config{Depth: 1})
//	if err != nil {
//		return err
//	}
//	router.Use(mw)
package cookiedomain
