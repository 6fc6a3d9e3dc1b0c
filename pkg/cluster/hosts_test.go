package cluster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/searchkit/pkg/cluster"
)

func TestParseNodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		nodes       string
		wantHosts   []cluster.Host
		wantSkipped []string
	}{
		{
			name:  "two valid nodes",
			nodes: "127.0.0.1:9200,127.0.0.1:9201",
			wantHosts: []cluster.Host{
				{Host: "127.0.0.1", Port: 9200},
				{Host: "127.0.0.1", Port: 9201},
			},
		},
		{
			name:      "whitespace around entries",
			nodes:     " es1:9200 , es2 : 9300 ",
			wantHosts: []cluster.Host{{Host: "es1", Port: 9200}, {Host: "es2", Port: 9300}},
		},
		{
			name:        "missing port",
			nodes:       "bad-entry",
			wantSkipped: []string{"bad-entry"},
		},
		{
			name:        "valid and malformed mixed",
			nodes:       "es1:9200,es2,es3:abc,es4:1:2,:9200,es5:70000,es6:9201",
			wantHosts:   []cluster.Host{{Host: "es1", Port: 9200}, {Host: "es6", Port: 9201}},
			wantSkipped: []string{"es2", "es3:abc", "es4:1:2", ":9200", "es5:70000"},
		},
		{
			name:  "empty string",
			nodes: "",
		},
		{
			name:      "blank entries ignored",
			nodes:     "es1:9200,,",
			wantHosts: []cluster.Host{{Host: "es1", Port: 9200}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hosts, skipped := cluster.ParseNodes(tt.nodes)
			assert.Equal(t, tt.wantHosts, hosts)
			assert.Equal(t, tt.wantSkipped, skipped)
		})
	}
}

func TestHost_URL(t *testing.T) {
	t.Parallel()

	h := cluster.Host{Host: "127.0.0.1", Port: 9200}
	assert.Equal(t, "127.0.0.1:9200", h.String())
	assert.Equal(t, "http://127.0.0.1:9200", h.URL(""))
	assert.Equal(t, "https://127.0.0.1:9200", h.URL("https"))
	assert.Equal(t, "http://[::1]:9200", cluster.Host{Host: "::1", Port: 9200}.URL("http"))
}
