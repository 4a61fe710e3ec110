package grpcinterface

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// TLSKeyFile is the name of the TLS key file of the node interface.
	TLSKeyFile = "key.pem"
	// TLSCertFile is the name of the TLS certificate file of the node
	// interface.
	TLSCertFile = "cert.pem"

	certValidity = 365 * 24 * time.Hour
	minPort      = 1024
)

var (
	serialNumberLimit = new(big.Int).Lsh(big.NewInt(1), 128)
)

func isValidAddress(addr string) bool {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if len(host) > 0 && net.ParseIP(host) == nil {
		return false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return false
	}
	return port > minPort && port <= 65535
}

// generateTLSKeyCert writes a self-signed certificate for the node interface
// into dir. An existing pair is left untouched, an existing key is reused.
func generateTLSKeyCert(dir string, extraIPs, extraDomains []string) error {
	keyPath := filepath.Join(dir, TLSKeyFile)
	certPath := filepath.Join(dir, TLSCertFile)
	if pathExists(keyPath) && pathExists(certPath) {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	key, err := loadOrCreateKey(keyPath)
	if err != nil {
		return err
	}

	ips, domains, err := certHosts(extraIPs, extraDomains)
	if err != nil {
		return err
	}
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %s", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"escrow"},
			CommonName:   domains[0],
		},
		NotBefore:             now.Add(-24 * time.Hour),
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:                  true,
		BasicConstraintsValid: true,
		DNSNames:              domains,
		IPAddresses:           ips,
	}
	der, err := x509.CreateCertificate(
		rand.Reader, template, template, &key.PublicKey, key,
	)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %s", err)
	}
	keyDer, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return err
	}

	if err := writePEM(keyPath, "EC PRIVATE KEY", keyDer, 0600); err != nil {
		return err
	}
	return writePEM(certPath, "CERTIFICATE", der, 0644)
}

// certHosts returns the loopback and interface addresses plus the extra
// ones, and the hostname followed by localhost and the extra domains.
func certHosts(extraIPs, extraDomains []string) ([]net.IP, []string, error) {
	ips := []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}
	addIP := func(ip net.IP) {
		if ip == nil {
			return
		}
		for _, i := range ips {
			if i.Equal(ip) {
				return
			}
		}
		ips = append(ips, ip)
	}
	for _, ip := range extraIPs {
		addIP(net.ParseIP(ip))
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, nil, err
	}
	for _, addr := range addrs {
		if ip, _, err := net.ParseCIDR(addr.String()); err == nil {
			addIP(ip)
		}
	}

	host, err := os.Hostname()
	if err != nil {
		return nil, nil, err
	}
	domains := []string{host}
	if host != "localhost" {
		domains = append(domains, "localhost")
	}
	return ips, append(domains, extraDomains...), nil
}

func loadOrCreateKey(path string) (*ecdsa.PrivateKey, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		}
		return nil, err
	}
	block, _ := pem.Decode(buf)
	if block == nil {
		return nil, fmt.Errorf("no pem data found in %s", path)
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("invalid tls key %s: %s", path, err)
	}
	return key, nil
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) error {
	buf := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	return os.WriteFile(path, buf, perm)
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
