package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records err under the key "error". A nil error yields an empty Attr,
// which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errors under the key "errors".
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

// Cluster records the configured cluster name under "cluster".
func Cluster(name string) slog.Attr {
	return slog.String("cluster", name)
}

// Index records the index name under "index".
func Index(name string) slog.Attr {
	return slog.String("index", name)
}

// DocID records a document identifier under "doc_id". Blank ids yield an empty Attr.
func DocID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("doc_id", id)
}

// Operation records the façade operation name under "op".
func Operation(name string) slog.Attr {
	return slog.String("op", name)
}

// Count records a number of items under the given key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Hosts records a list of host:port pairs under "hosts".
func Hosts(hosts []string) slog.Attr {
	return slog.Any("hosts", hosts)
}

// Duration records an elapsed time under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
