package cookiedomain

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrymomot/multisite/pkg/netloc"
)

// DefaultListFile is the file name of the cached Public Suffix List.
const DefaultListFile = "multisite_tld.dat"

// Config configures the cookie domain middleware.
type Config struct {
	// Depth is the number of subdomain labels kept in the cookie domain. Zero
	// scopes cookies to the registrable domain.
	Depth Depth `env:"MULTISITE_COOKIE_DOMAIN_DEPTH" envDefault:"0"`

	// PublicSuffixListCache is the Public Suffix List data file. The built-in
	// table is used when it does not exist.
	PublicSuffixListCache string `env:"MULTISITE_PUBLIC_SUFFIX_LIST_CACHE"`

	// IncludePrivate honours private suffixes such as "github.io".
	IncludePrivate bool `env:"MULTISITE_PUBLIC_SUFFIX_PRIVATE" envDefault:"false"`
}

// DefaultListPath returns the default location of the suffix list file.
func DefaultListPath() string {
	return filepath.Join(os.TempDir(), DefaultListFile)
}

// ParseDepth parses a depth setting. Non-numeric and negative values fail.
func ParseDepth(s string) (int, error) {
	depth, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: depth %q is not a number", ErrConfiguration, s)
	}
	if depth < 0 {
		return 0, fmt.Errorf("%w: depth %d is negative", ErrConfiguration, depth)
	}
	return depth, nil
}

// Depth is a subdomain label count read from the environment through ParseDepth.
type Depth int

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Depth) UnmarshalText(text []byte) error {
	v, err := ParseDepth(string(text))
	if err != nil {
		return err
	}
	*d = Depth(v)
	return nil
}

// Option configures a Scoper.
type Option func(*Scoper)

// WithSuffixList replaces the list loaded from the configuration.
func WithSuffixList(list SuffixList) Option {
	return func(s *Scoper) {
		if list != nil {
			s.list = list
		}
	}
}

// WithLogger sets the logger used for rewritten cookies.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scoper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scoper computes cookie domains from request hosts.
type Scoper struct {
	depth  int
	list   SuffixList
	logger *slog.Logger
}

// New validates cfg and loads the suffix list.
func New(cfg Config, opts ...Option) (*Scoper, error) {
	if cfg.Depth < 0 {
		return nil, fmt.Errorf("%w: depth %d is negative", ErrConfiguration, cfg.Depth)
	}

	s := &Scoper{depth: int(cfg.Depth), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if s.list == nil {
		path := cfg.PublicSuffixListCache
		if path == "" {
			path = DefaultListPath()
		}
		list, err := LoadSuffixList(path, cfg.IncludePrivate)
		if err != nil {
			return nil, err
		}
		s.list = list
	}

	return s, nil
}

// Depth returns the configured depth.
func (s *Scoper) Depth() int {
	return s.depth
}

// Domain returns the cookie domain for host, with a leading dot. The bool is
// false when cookies for host must keep the browser default: IP literals,
// local names, bare public suffixes and hosts with fewer than Depth subdomain
// labels.
func (s *Scoper) Domain(host string) (string, bool) {
	if h, _, err := netloc.SplitHostPort(host); err == nil {
		host = h
	}

	parts, err := s.list.Split(host)
	if err != nil {
		return "", false
	}

	if s.depth == 0 {
		return "." + parts.Registrable(), true
	}

	labels := parts.SubdomainLabels()
	if len(labels) < s.depth {
		return "", false
	}
	kept := strings.Join(labels[len(labels)-s.depth:], ".")
	return "." + kept + "." + parts.Registrable(), true
}

// Middleware sets the Domain attribute of every Set-Cookie header that lacks one.
func (s *Scoper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		domain, ok := s.Domain(r.Host)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		sw := &scopingWriter{ResponseWriter: w, domain: domain, logger: s.logger, r: r}
		next.ServeHTTP(sw, r)
		sw.scope()
	})
}

// Middleware builds a Scoper from cfg and returns its middleware.
func Middleware(cfg Config, opts ...Option) (func(http.Handler) http.Handler, error) {
	s, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return s.Middleware, nil
}

// scopingWriter rewrites Set-Cookie headers right before they are sent.
type scopingWriter struct {
	http.ResponseWriter
	domain string
	logger *slog.Logger
	r      *http.Request
	done   bool
}

func (w *scopingWriter) WriteHeader(statusCode int) {
	w.scope()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *scopingWriter) Write(b []byte) (int, error) {
	w.scope()
	return w.ResponseWriter.Write(b)
}

func (w *scopingWriter) Flush() {
	w.scope()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *scopingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *scopingWriter) scope() {
	if w.done {
		return
	}
	w.done = true

	values := w.Header().Values("Set-Cookie")
	if len(values) == 0 {
		return
	}

	scoped := make([]string, 0, len(values))
	for _, v := range values {
		if hasDomain(v) {
			scoped = append(scoped, v)
			continue
		}
		scoped = append(scoped, v+"; Domain="+w.domain)
		w.logger.DebugContext(w.r.Context(), "scoped cookie domain",
			slog.String("cookie", cookieName(v)),
			slog.String("domain", w.domain),
		)
	}
	w.Header()["Set-Cookie"] = scoped
}

func hasDomain(setCookie string) bool {
	c, err := http.ParseSetCookie(setCookie)
	if err != nil {
		// Leave headers we cannot parse alone.
		return true
	}
	return c.Domain != ""
}

func cookieName(setCookie string) string {
	name, _, _ := strings.Cut(setCookie, "=")
	return strings.TrimSpace(name)
}
