package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CertStoreType names an OPC UA certificate store implementation.
type CertStoreType string

const (
	CertStoreDirectory CertStoreType = "Directory"
	CertStoreX509      CertStoreType = "X509Store"
)

// x509OwnStorePath is the Windows certificate store the application
// certificate lives in when the X509Store type is used.
const x509OwnStorePath = `CurrentUser\My`

// AppConfig is the OPC UA application configuration the publisher under test
// runs with. Build one per test run and pass it to whoever needs it.
type AppConfig struct {
	AutoAcceptCerts  bool
	OwnCertStoreType CertStoreType
	OwnCertStorePath string
	// Stores lists the directory stores Configure creates.
	Stores []string

	once sync.Once
	err  error
}

// DefaultAppConfig returns the configuration used against the simulator:
// every server certificate is accepted, and on Windows the application
// certificate is kept in the X509 store because the runtime cannot read
// private keys from the directory store there.
func DefaultAppConfig(goos, tempData string) *AppConfig {
	pki := filepath.Join(tempData, "pki")
	c := &AppConfig{
		AutoAcceptCerts:  true,
		OwnCertStoreType: CertStoreDirectory,
		OwnCertStorePath: filepath.Join(pki, "own"),
		Stores: []string{
			filepath.Join(pki, "trusted"),
			filepath.Join(pki, "issuer"),
			filepath.Join(pki, "rejected"),
		},
	}
	if goos == "windows" {
		c.OwnCertStoreType = CertStoreX509
		c.OwnCertStorePath = x509OwnStorePath
	}
	return c
}

// Configure validates the configuration and creates its directory stores.
// Only the first call does any work; later calls return the first result.
func (c *AppConfig) Configure(ctx context.Context) error {
	c.once.Do(func() {
		c.err = c.configure(ctx)
	})
	return c.err
}

func (c *AppConfig) configure(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dirs := append([]string(nil), c.Stores...)
	switch c.OwnCertStoreType {
	case CertStoreDirectory:
		if c.OwnCertStorePath == "" {
			return fmt.Errorf("directory certificate store needs a path")
		}
		dirs = append(dirs, filepath.Join(c.OwnCertStorePath, "certs"), filepath.Join(c.OwnCertStorePath, "private"))
	case CertStoreX509:
		if c.OwnCertStorePath == "" {
			return fmt.Errorf("x509 certificate store needs a store name")
		}
	default:
		return fmt.Errorf("unknown certificate store type %q", c.OwnCertStoreType)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return fmt.Errorf("create certificate store %s: %w", d, err)
		}
	}
	return nil
}
