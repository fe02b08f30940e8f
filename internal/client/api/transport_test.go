package api

import (
	"context"
	"crypto/tls"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/QuizDesk/internal/certgen"
	"github.com/atinyakov/QuizDesk/internal/errs"
	"github.com/atinyakov/QuizDesk/internal/testserver"
)

func TestNewHTTPClient_NoCA(t *testing.T) {
	hc, err := NewHTTPClient("", 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, hc.Timeout)
}

func TestNewHTTPClient_MissingCA(t *testing.T) {
	_, err := NewHTTPClient(filepath.Join(t.TempDir(), "missing.pem"), time.Second)
	assert.ErrorContains(t, err, "failed to read CA cert")
}

func TestNewHTTPClient_InvalidCA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a cert"), 0o600))

	_, err := NewHTTPClient(path, time.Second)
	assert.ErrorContains(t, err, "failed to parse CA cert")
}

func TestNewHTTPClient_TrustsCA(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(path, block, 0o600))

	hc, err := NewHTTPClient(path, time.Second)
	require.NoError(t, err)

	resp, err := hc.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestNewHTTPClient_BackendOverTLS(t *testing.T) {
	ca, err := certgen.NewAuthority("Test CA", time.Hour)
	require.NoError(t, err)
	certPEM, keyPEM, err := ca.IssueServer([]string{"127.0.0.1"}, time.Hour)
	require.NoError(t, err)
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)

	b := testserver.New(nil)
	b.AddUser("alice", "alice@example.com", "secret")
	srv := httptest.NewUnstartedServer(b.Handler())
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{pair}}
	srv.StartTLS()
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.crt")
	require.NoError(t, os.WriteFile(caFile, ca.CertPEM(), 0o600))
	hc, err := NewHTTPClient(caFile, 5*time.Second)
	require.NoError(t, err)

	c, err := New(srv.URL, nil, WithHTTPClient(hc))
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	// without the CA the same backend is untrusted
	plain, err := New(srv.URL, nil, WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	require.NoError(t, err)
	_, err = plain.Login(context.Background(), "alice", "secret")
	var netErr *errs.NetworkError
	assert.ErrorAs(t, err, &netErr)
}
