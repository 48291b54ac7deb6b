package httpclient_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtalcott/notion-file-migration-tool/internal/httpclient"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	client := httpclient.New(nil)
	assert.Equal(t, httpclient.DefaultTimeout, client.Timeout)
}

func TestNew_SetsUserAgent(t *testing.T) {
	t.Parallel()

	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := httpclient.New(&httpclient.ClientConfig{Timeout: time.Second, UserAgent: "migrator-test"})
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "migrator-test", got)
	assert.Equal(t, time.Second, client.Timeout)
}
