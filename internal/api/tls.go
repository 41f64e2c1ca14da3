package api

import (
	"crypto/tls"
	"log"
	"os"
	"sync"
)

// TLS for the operator surface is optional: set ENGINE_TLS_CERT and
// ENGINE_TLS_KEY to serve HTTPS directly, or leave both unset behind a
// terminating proxy. A half-configured pair is treated as disabled.
var tlsState struct {
	mu   sync.Mutex
	cert string
	key  string
}

// InitTLS reads the certificate and key paths from the environment.
// Call before Start.
func InitTLS() {
	tlsState.mu.Lock()
	defer tlsState.mu.Unlock()
	tlsState.cert = os.Getenv("ENGINE_TLS_CERT")
	tlsState.key = os.Getenv("ENGINE_TLS_KEY")
}

// IsTLSEnabled reports whether both a certificate and a key are set.
func IsTLSEnabled() bool {
	tlsState.mu.Lock()
	defer tlsState.mu.Unlock()
	return tlsState.cert != "" && tlsState.key != ""
}

// LoadTLSConfig builds the server's tls.Config from the configured key
// pair, or nil when TLS is disabled or the pair cannot be loaded.
func LoadTLSConfig() *tls.Config {
	tlsState.mu.Lock()
	certFile, keyFile := tlsState.cert, tlsState.key
	tlsState.mu.Unlock()

	if certFile == "" || keyFile == "" {
		return nil
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		log.Printf("api: load TLS key pair: %v", err)
		return nil
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

// SetTLSFilesForTest overrides the configured key pair.
func SetTLSFilesForTest(cert, key string) {
	tlsState.mu.Lock()
	defer tlsState.mu.Unlock()
	tlsState.cert = cert
	tlsState.key = key
}
