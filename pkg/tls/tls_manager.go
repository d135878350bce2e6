// Package tls provides HTTPS for the session server: Let's Encrypt via
// autocert, manual certificate files or a generated self-signed pair.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antibyte/retrobasic/pkg/configuration"
	"github.com/antibyte/retrobasic/pkg/logger"

	"golang.org/x/crypto/acme/autocert"
)

// selfSignedValidity ist die Laufzeit generierter Entwicklungszertifikate
const selfSignedValidity = 365 * 24 * time.Hour

// Config holds the [TLS] settings.
type Config struct {
	Enabled          bool
	LetsEncrypt      bool
	Domain           string
	Email            string
	CacheDir         string
	RedirectHTTP     bool
	CertFile         string
	KeyFile          string
	HTTPPort         string
	HTTPSPort        string
	GenerateSelfCert bool
}

// LoadConfig reads the [TLS] section.
func LoadConfig() *Config {
	return &Config{
		Enabled:          configuration.GetBool("TLS", "enable_tls", false),
		LetsEncrypt:      configuration.GetBool("TLS", "enable_letsencrypt", false),
		Domain:           configuration.GetString("TLS", "domain", ""),
		Email:            configuration.GetString("TLS", "letsencrypt_email", ""),
		CacheDir:         configuration.GetString("TLS", "cert_cache_dir", "./certs"),
		RedirectHTTP:     configuration.GetBool("TLS", "force_https_redirect", false),
		CertFile:         configuration.GetString("TLS", "cert_file", "./certs/server.crt"),
		KeyFile:          configuration.GetString("TLS", "key_file", "./certs/server.key"),
		HTTPPort:         configuration.GetString("TLS", "http_port", "8080"),
		HTTPSPort:        configuration.GetString("TLS", "https_port", "8443"),
		GenerateSelfCert: configuration.GetBool("TLS", "generate_self_signed", false),
	}
}

// Validate checks that the enabled mode has what it needs.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.LetsEncrypt {
		if strings.TrimSpace(c.Domain) == "" {
			return fmt.Errorf("domain is required when Let's Encrypt is enabled")
		}
		if strings.TrimSpace(c.Email) == "" {
			return fmt.Errorf("letsencrypt_email is required when Let's Encrypt is enabled")
		}
		if strings.Contains(c.Domain, "example.com") {
			logger.SecurityWarn("Using example domain - change this in production!")
		}
		return nil
	}
	if strings.TrimSpace(c.CertFile) == "" || strings.TrimSpace(c.KeyFile) == "" {
		return fmt.Errorf("cert_file and key_file are required for manual TLS")
	}
	return nil
}

// Manager builds the server's TLS configuration.
type Manager struct {
	config      *Config
	autocertMgr *autocert.Manager
	tlsConfig   *tls.Config
}

// NewManager validates cfg and prepares certificates when TLS is enabled.
func NewManager(cfg *Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("TLS configuration validation failed: %w", err)
	}
	m := &Manager{config: cfg}
	if !cfg.Enabled {
		return m, nil
	}

	var err error
	if cfg.LetsEncrypt {
		err = m.setupLetsEncrypt()
	} else {
		err = m.setupCertFiles()
	}
	if err != nil {
		return nil, fmt.Errorf("TLS initialization failed: %w", err)
	}
	return m, nil
}

func (m *Manager) setupLetsEncrypt() error {
	logger.Info(logger.AreaTLS, "Initializing Let's Encrypt for domain: %s", m.config.Domain)

	if err := os.MkdirAll(m.config.CacheDir, 0700); err != nil {
		return fmt.Errorf("failed to create certificate cache directory: %w", err)
	}

	m.autocertMgr = &autocert.Manager{
		Cache:      autocert.DirCache(m.config.CacheDir),
		Prompt:     autocert.AcceptTOS,
		Email:      m.config.Email,
		HostPolicy: autocert.HostWhitelist(m.config.Domain, "www."+m.config.Domain),
	}

	m.tlsConfig = &tls.Config{
		GetCertificate: m.certificateFor,
		NextProtos:     []string{"h2", "http/1.1"},
		MinVersion:     tls.VersionTLS12,
	}
	return nil
}

// certificateFor beantwortet Handshakes über autocert, ohne SNI mit der Domain
func (m *Manager) certificateFor(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	serverName := hello.ServerName
	if serverName == "" {
		logger.SecurityWarn("TLS handshake without SNI, using default domain")
		serverName = m.config.Domain
		hello.ServerName = serverName
	}
	if serverName != m.config.Domain && serverName != "www."+m.config.Domain {
		logger.SecurityWarn("TLS request for unauthorized domain: %s", serverName)
		return nil, fmt.Errorf("unauthorized domain: %s", serverName)
	}

	cert, err := m.autocertMgr.GetCertificate(hello)
	if err != nil {
		logger.SecurityWarn("Failed to get certificate for %s: %v", serverName, err)
		return nil, fmt.Errorf("certificate error for %s: %w", serverName, err)
	}
	logger.Debug(logger.AreaTLS, "Provided certificate for: %s", serverName)
	return cert, nil
}

func (m *Manager) setupCertFiles() error {
	logger.Info(logger.AreaTLS, "Initializing manual TLS with cert: %s, key: %s", m.config.CertFile, m.config.KeyFile)

	if !fileExists(m.config.CertFile) || !fileExists(m.config.KeyFile) {
		if !m.config.GenerateSelfCert {
			return fmt.Errorf("certificate files not found: %s, %s", m.config.CertFile, m.config.KeyFile)
		}
		host := m.config.Domain
		if host == "" {
			host = "localhost"
		}
		if err := GenerateSelfSignedCert(m.config.CertFile, m.config.KeyFile, host); err != nil {
			return err
		}
	}

	pair, err := tls.LoadX509KeyPair(m.config.CertFile, m.config.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	m.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{pair},
		NextProtos:   []string{"h2", "http/1.1"},
		MinVersion:   tls.VersionTLS12,
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// TLSConfig returns the server configuration, or nil when TLS is off.
func (m *Manager) TLSConfig() *tls.Config {
	if !m.config.Enabled {
		return nil
	}
	return m.tlsConfig
}

// Enabled reports whether the server should listen with TLS.
func (m *Manager) Enabled() bool {
	return m.config.Enabled
}

// HTTPAddr and HTTPSAddr are the listen addresses of the two servers.
func (m *Manager) HTTPAddr() string  { return ":" + m.config.HTTPPort }
func (m *Manager) HTTPSAddr() string { return ":" + m.config.HTTPSPort }

// NeedsHTTPServer reports whether a plain HTTP listener is needed next to
// HTTPS, for ACME challenges or redirects.
func (m *Manager) NeedsHTTPServer() bool {
	return m.config.Enabled && (m.config.LetsEncrypt || m.config.RedirectHTTP)
}

// HTTPHandler serves the plain HTTP side: ACME challenges when Let's Encrypt
// is active, with the HTTPS redirect (or a 404) as fallback.
func (m *Manager) HTTPHandler() http.Handler {
	fallback := m.RedirectHandler()
	if m.autocertMgr != nil {
		return m.autocertMgr.HTTPHandler(fallback)
	}
	if fallback == nil {
		return http.NotFoundHandler()
	}
	return fallback
}

// RedirectHandler sends HTTP requests to the HTTPS port. It is nil when
// redirects are disabled.
func (m *Manager) RedirectHandler() http.Handler {
	if !m.config.RedirectHTTP {
		return nil
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		target := "https://" + host
		if m.config.HTTPSPort != "443" {
			target += ":" + m.config.HTTPSPort
		}
		target += r.URL.RequestURI()

		logger.Debug(logger.AreaTLS, "Redirecting HTTP to HTTPS: %s -> %s", r.URL.String(), target)
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}

// GenerateSelfSignedCert writes a self-signed ECDSA certificate and key for
// host, for development setups.
func GenerateSelfSignedCert(certFile, keyFile, host string) error {
	logger.Info(logger.AreaTLS, "Generating self-signed certificate for %s", host)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"RetroBASIC development"}, CommonName: host},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	if ip := net.ParseIP(host); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else {
		template.DNSNames = []string{host}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to encode key: %w", err)
	}

	if err := writePEM(certFile, "CERTIFICATE", der, 0644); err != nil {
		return err
	}
	if err := writePEM(keyFile, "EC PRIVATE KEY", keyDER, 0600); err != nil {
		return err
	}
	logger.SecurityWarn("Using self-signed certificate %s - not for production", certFile)
	return nil
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
