package pkpass

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sign produces a detached DER PKCS#7 signature of manifest with openssl.
func (p *Packager) sign(ctx context.Context, manifest []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "tw-sign-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("pkpass.cleanup_failed", "dir", dir, "error", err)
		}
	}()

	manifestPath := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(manifestPath, manifest, 0o600); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	certPEM, keyPEM := p.cfg.CertificatePath, p.cfg.CertificatePath
	pass := "pass:" + p.cfg.CertificatePassword
	if isPKCS12(p.cfg.CertificatePath) {
		certPEM = filepath.Join(dir, "cert.pem")
		keyPEM = filepath.Join(dir, "key.pem")
		if err := p.openssl(ctx, "pkcs12", "-in", p.cfg.CertificatePath, "-clcerts", "-nokeys", "-out", certPEM, "-passin", pass); err != nil {
			return nil, fmt.Errorf("extract certificate: %w", err)
		}
		if err := p.openssl(ctx, "pkcs12", "-in", p.cfg.CertificatePath, "-nocerts", "-nodes", "-out", keyPEM, "-passin", pass); err != nil {
			return nil, fmt.Errorf("extract key: %w", err)
		}
	}

	sigPath := filepath.Join(dir, SignatureFile)
	args := []string{"smime", "-binary", "-sign",
		"-signer", certPEM,
		"-inkey", keyPEM,
		"-certfile", p.cfg.WWDRCertPath,
		"-in", manifestPath,
		"-out", sigPath,
		"-outform", "DER",
	}
	if !isPKCS12(p.cfg.CertificatePath) && p.cfg.CertificatePassword != "" {
		args = append(args, "-passin", pass)
	}
	if err := p.openssl(ctx, args...); err != nil {
		return nil, fmt.Errorf("smime sign: %w", err)
	}

	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return nil, fmt.Errorf("read signature: %w", err)
	}
	if len(sig) == 0 {
		return nil, fmt.Errorf("openssl wrote an empty signature")
	}
	return sig, nil
}

func (p *Packager) openssl(ctx context.Context, args ...string) error {
	_, errb, err := p.runner.Run(ctx, p.cfg.OpenSSL, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func isPKCS12(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		return true
	}
	return false
}
