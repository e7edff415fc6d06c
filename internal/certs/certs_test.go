package certs

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileManager_GetOrCreateCertificate(t *testing.T) {
	tests := []struct {
		setup          func(t *testing.T, certDir string)
		validateResult func(t *testing.T, certDir string, cert tls.Certificate)
		name           string
		errorContains  string
		wantErr        bool
	}{
		{
			name:  "creates new certificate when none exists",
			setup: func(_ *testing.T, _ string) {},
			validateResult: func(t *testing.T, _ string, cert tls.Certificate) {
				t.Helper()
				require.Len(t, cert.Certificate, 1)

				x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
				require.NoError(t, err)
				assert.Equal(t, "chainwatch fixture service", x509Cert.Subject.Organization[0])
				assert.Contains(t, x509Cert.DNSNames, "localhost")
				assert.True(t, x509Cert.IPAddresses[0].Equal(net.IPv4(127, 0, 0, 1)))
				assert.True(t, x509Cert.NotAfter.After(time.Now().Add(Validity-time.Hour)))
				assert.NoError(t, x509Cert.VerifyHostname("localhost"))
			},
		},
		{
			name: "reuses existing valid certificate",
			setup: func(t *testing.T, certDir string) {
				t.Helper()
				_, err := NewFileManager(certDir).GetOrCreateCertificate()
				require.NoError(t, err)
			},
			validateResult: func(t *testing.T, certDir string, cert tls.Certificate) {
				t.Helper()
				stored, err := tls.LoadX509KeyPair(
					filepath.Join(certDir, CertFileName),
					filepath.Join(certDir, KeyFileName))
				require.NoError(t, err)
				assert.Equal(t, stored.Certificate[0], cert.Certificate[0])
			},
		},
		{
			name: "regenerates unreadable certificate",
			setup: func(t *testing.T, certDir string) {
				t.Helper()
				require.NoError(t, os.MkdirAll(certDir, 0o700))
				require.NoError(t, os.WriteFile(filepath.Join(certDir, CertFileName), []byte("garbage"), 0o600))
				require.NoError(t, os.WriteFile(filepath.Join(certDir, KeyFileName), []byte("garbage"), 0o600))
			},
			validateResult: func(t *testing.T, _ string, cert tls.Certificate) {
				t.Helper()
				require.Len(t, cert.Certificate, 1)
				_, err := x509.ParseCertificate(cert.Certificate[0])
				assert.NoError(t, err)
			},
		},
		{
			name: "fails when the directory is blocked by a file",
			setup: func(t *testing.T, certDir string) {
				t.Helper()
				// a file where the directory should be
				require.NoError(t, os.WriteFile(certDir, []byte("x"), 0o600))
			},
			wantErr:       true,
			errorContains: "failed to check certificate existence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certDir := filepath.Join(t.TempDir(), "certs")
			tt.setup(t, certDir)

			cert, err := NewFileManager(certDir).GetOrCreateCertificate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			if tt.validateResult != nil {
				tt.validateResult(t, certDir, cert)
			}
		})
	}
}

func TestFileManager_RegeneratesExpiredCertificate(t *testing.T) {
	certDir := t.TempDir()
	m := NewFileManager(certDir)
	m.now = func() time.Time { return time.Now().Add(-2 * Validity) }
	old, err := m.GetOrCreateCertificate()
	require.NoError(t, err)

	m.now = time.Now
	fresh, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	assert.NotEqual(t, old.Certificate[0], fresh.Certificate[0])
}

func TestFileManager_CertificateExists(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  bool
	}{
		{name: "no files", want: false},
		{name: "both files", files: []string{CertFileName, KeyFileName}, want: true},
		{name: "certificate only", files: []string{CertFileName}, want: false},
		{name: "key only", files: []string{KeyFileName}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certDir := t.TempDir()
			for _, f := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(certDir, f), []byte("x"), 0o600))
			}
			got, err := NewFileManager(certDir).CertificateExists()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileManager_verifyCertificate(t *testing.T) {
	m := NewFileManager(t.TempDir())
	cert, err := m.GetOrCreateCertificate()
	require.NoError(t, err)

	assert.NoError(t, m.verifyCertificate(cert))
	assert.ErrorIs(t, m.verifyCertificate(tls.Certificate{}), ErrNoCertificate)

	m.now = func() time.Time { return time.Now().Add(2 * Validity) }
	assert.Error(t, m.verifyCertificate(cert))
}

func TestLoadPool(t *testing.T) {
	m := NewFileManager(t.TempDir())
	_, err := m.GetOrCreateCertificate()
	require.NoError(t, err)

	pool, err := LoadPool(m.CertFile())
	require.NoError(t, err)
	assert.NotNil(t, pool)

	bogus := filepath.Join(t.TempDir(), "bogus.pem")
	require.NoError(t, os.WriteFile(bogus, []byte("not pem"), 0o600))
	_, err = LoadPool(bogus)
	assert.ErrorIs(t, err, ErrNoCertificate)

	_, err = LoadPool(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}

func TestServerConfigIsTrustedByPool(t *testing.T) {
	m := NewFileManager(t.TempDir())
	serverCfg, err := m.ServerConfig()
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	srv.TLS = serverCfg
	srv.StartTLS()
	defer srv.Close()

	pool, err := LoadPool(m.CertFile())
	require.NoError(t, err)
	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
	}}

	// the certificate names 127.0.0.1, which httptest listens on
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
