package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups the non-nil errors under "errors". All nil gives an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records err under "error". A nil err gives an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RequestID records the request identifier under "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// TenantID records the resolved tenant under "tenant_id".
func TenantID(id int64) slog.Attr {
	return slog.Int64("tenant_id", id)
}

// AliasID records the matched alias under "alias_id".
func AliasID(id int64) slog.Attr {
	return slog.Int64("alias_id", id)
}

// Host records a request host under "host".
func Host(host string) slog.Attr {
	return slog.String("host", host)
}

// Domain records a tenant or alias domain under "domain".
func Domain(domain string) slog.Attr {
	return slog.String("domain", domain)
}

// CacheKey records a cache key under "cache_key".
func CacheKey(key string) slog.Attr {
	return slog.String("cache_key", key)
}

// Duration records a duration under "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
