package tls

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"letsencrypt without domain", Config{Enabled: true, LetsEncrypt: true, Email: "test@example.org"}, true},
		{"letsencrypt without email", Config{Enabled: true, LetsEncrypt: true, Domain: "basic.test"}, true},
		{"letsencrypt complete", Config{Enabled: true, LetsEncrypt: true, Domain: "basic.test", Email: "a@basic.test"}, false},
		{"manual without files", Config{Enabled: true}, true},
		{"manual with files", Config{Enabled: true, CertFile: "c.crt", KeyFile: "c.key"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDisabledManager(t *testing.T) {
	m, err := NewManager(LoadConfig())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if m.Enabled() || m.TLSConfig() != nil || m.NeedsHTTPServer() {
		t.Error("TLS should be disabled by default")
	}
	if m.HTTPAddr() != ":8080" || m.HTTPSAddr() != ":8443" {
		t.Errorf("addresses = %s, %s", m.HTTPAddr(), m.HTTPSAddr())
	}
	if m.RedirectHandler() != nil {
		t.Error("redirect handler should be nil when redirects are disabled")
	}
}

func TestMissingCertificates(t *testing.T) {
	dir := t.TempDir()
	_, err := NewManager(&Config{
		Enabled:  true,
		CertFile: filepath.Join(dir, "missing.crt"),
		KeyFile:  filepath.Join(dir, "missing.key"),
	})
	if err == nil {
		t.Error("missing certificate files should fail without generate_self_signed")
	}
}

func TestSelfSignedManager(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Enabled:          true,
		CertFile:         filepath.Join(dir, "certs", "server.crt"),
		KeyFile:          filepath.Join(dir, "certs", "server.key"),
		HTTPSPort:        "8443",
		GenerateSelfCert: true,
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	tc := m.TLSConfig()
	if tc == nil || len(tc.Certificates) != 1 {
		t.Fatalf("expected one loaded certificate, got %+v", tc)
	}

	// second start reuses the files
	if _, err := NewManager(cfg); err != nil {
		t.Fatalf("reusing generated certificate failed: %v", err)
	}
}

func TestRedirectHandler(t *testing.T) {
	tests := []struct {
		port string
		want string
	}{
		{"8443", "https://basic.test:8443/ws?token=x"},
		{"443", "https://basic.test/ws?token=x"},
	}
	for _, tt := range tests {
		t.Run(tt.port, func(t *testing.T) {
			m := &Manager{config: &Config{Enabled: true, RedirectHTTP: true, HTTPSPort: tt.port}}
			if !m.NeedsHTTPServer() {
				t.Error("redirects need the HTTP server")
			}

			req := httptest.NewRequest(http.MethodGet, "http://basic.test:8080/ws?token=x", nil)
			rr := httptest.NewRecorder()
			m.HTTPHandler().ServeHTTP(rr, req)

			if rr.Code != http.StatusMovedPermanently {
				t.Fatalf("status = %d", rr.Code)
			}
			if got := rr.Header().Get("Location"); got != tt.want {
				t.Errorf("Location = %q, want %q", got, tt.want)
			}
		})
	}
}
