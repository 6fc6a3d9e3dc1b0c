package cluster

import (
	"net"
	"strconv"
	"strings"
)

// Host is a single node address of a cluster.
type Host struct {
	Host string
	Port int
}

func (h Host) String() string {
	return h.Host + ":" + strconv.Itoa(h.Port)
}

// URL returns the node address with the given scheme, e.g. http://127.0.0.1:9200.
func (h Host) URL(scheme string) string {
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// ParseNodes splits a comma-separated host:port list.
// Entries that do not split into exactly a host and a numeric port in
// 1..65535 are returned in skipped; blank entries are ignored.
func ParseNodes(nodes string) (hosts []Host, skipped []string) {
	for _, raw := range strings.Split(nodes, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 2 {
			skipped = append(skipped, entry)
			continue
		}

		host := strings.TrimSpace(parts[0])
		port, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if host == "" || err != nil || port < 1 || port > 65535 {
			skipped = append(skipped, entry)
			continue
		}
		hosts = append(hosts, Host{Host: host, Port: port})
	}
	return hosts, skipped
}

func hostStrings(hosts []Host) []string {
	out := make([]string, len(hosts))
	for i, h := range hosts {
		out[i] = h.String()
	}
	return out
}
