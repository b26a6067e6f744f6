// Package netloc parses and expands network locations ("host" or "host:port").
//
// Expand turns a hostname into the ordered list of alias patterns that may match it,
// from the most specific to the least specific:
//
//	netloc.Expand("www.example.com", 8000)
//	// ["www.example.com:8000", "www.example.com",
//	//  "*.example.com:8000", "*.example.com",
//	//  "*.com:8000", "*.com",
//	//  "*:8000", "*"]
//
// A port-qualified pattern always precedes its port-less variant. IPv4 literals are
// treated as a single label and are never wildcarded below the full address.
//
// SplitHostPort parses a raw Host header value into a lower-cased ASCII hostname and
// an optional port. Internationalized names are converted with IDNA.
package netloc
