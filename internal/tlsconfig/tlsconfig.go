package tlsconfig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"doggygallery/internal/logging"
)

const (
	// Version is reported by /api/config.
	Version = "TLS 1.3"
	// HTTPVersion is reported by /api/config.
	HTTPVersion = "HTTP/2"

	selfSignedValidity = 365 * 24 * time.Hour
)

// SelfSignedHosts are the subject alternative names of generated certificates.
var SelfSignedHosts = []string{"localhost", "127.0.0.1", "::1"}

// ErrNoCertificate is returned when neither files nor self-signed generation
// were configured.
var ErrNoCertificate = errors.New("no TLS certificate configured")

// New returns a server configuration for the given certificate. Only TLS 1.3
// is negotiated; h2 is offered first over ALPN.
func New(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS13,
		MaxVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
		CurvePreferences: []tls.CurveID{
			tls.X25519MLKEM768,
			tls.X25519,
			tls.CurveP256,
		},
		NextProtos: []string{"h2", "http/1.1"},
	}
}

// Load reads a PEM certificate chain and private key.
func Load(certFile, keyFile string) (*tls.Config, error) {
	logging.Info("Loading TLS certificate %s (key %s)", certFile, keyFile)

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	return New(cert), nil
}

// SelfSigned generates an ECDSA P-256 certificate valid for SelfSignedHosts.
func SelfSigned() (*tls.Config, error) {
	cert, err := GenerateCertificate(SelfSignedHosts, time.Now())
	if err != nil {
		return nil, err
	}
	logging.Warn("Using a self-signed certificate; browsers will show a warning")
	return New(cert), nil
}

// GenerateCertificate creates a self-signed certificate for hosts, valid from
// an hour before now.
func GenerateCertificate(hosts []string, now time.Time) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate serial: %w", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"DoggyGallery"}, CommonName: hosts[0]},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parse certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

// FromOptions picks self-signed generation or file loading.
func FromOptions(selfSigned bool, certFile, keyFile string) (*tls.Config, error) {
	switch {
	case selfSigned:
		return SelfSigned()
	case certFile != "" && keyFile != "":
		return Load(certFile, keyFile)
	default:
		return nil, ErrNoCertificate
	}
}

// Configure attaches cfg to srv and enables HTTP/2.
func Configure(srv *http.Server, cfg *tls.Config) error {
	srv.TLSConfig = cfg
	if err := http2.ConfigureServer(srv, &http2.Server{
		IdleTimeout: srv.IdleTimeout,
	}); err != nil {
		return fmt.Errorf("configure http2: %w", err)
	}
	return nil
}
