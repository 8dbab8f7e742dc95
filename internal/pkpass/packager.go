// Package pkpass assembles .pkpass archives: pass.json, images, manifest and signature.
package pkpass

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/passkit"
	"github.com/joseph-ayodele/ticket-wallet/internal/utils"
)

const (
	PassFile      = "pass.json"
	ManifestFile  = "manifest.json"
	SignatureFile = "signature"
	Extension     = ".pkpass"
)

var (
	requiredAssets = []string{"icon.png", "icon@2x.png"}
	optionalAssets = []string{
		"logo.png", "logo@2x.png",
		"background.png", "background@2x.png",
		"strip.png", "strip@2x.png",
		"thumbnail.png", "thumbnail@2x.png",
	}
)

type Config struct {
	OpenSSL string // binary name or absolute path; if empty -> "openssl"

	// CertificatePath is a PKCS#12 bundle (.p12/.pfx) or a PEM holding both
	// the pass certificate and its key.
	CertificatePath     string
	CertificatePassword string
	WWDRCertPath        string
	AssetsDir           string
}

func ConfigFrom(c common.SigningConfig) Config {
	return Config{
		OpenSSL:             c.OpenSSL,
		CertificatePath:     c.CertificatePath,
		CertificatePassword: c.CertificatePassword,
		WWDRCertPath:        c.WWDRCertPath,
		AssetsDir:           c.AssetsDir,
	}
}

type Packager struct {
	cfg    Config
	runner utils.Runner
	logger *slog.Logger
}

type Option func(*Packager)

func WithRunner(r utils.Runner) Option {
	return func(p *Packager) {
		if r != nil {
			p.runner = r
		}
	}
}

func NewPackager(cfg Config, logger *slog.Logger, opts ...Option) *Packager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OpenSSL == "" {
		cfg.OpenSSL = "openssl"
	}
	p := &Packager{cfg: cfg, runner: utils.NewExecRunner(logger), logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Signed reports whether archives will carry a signature.
func (p *Packager) Signed() bool {
	return p.cfg.CertificatePath != "" && p.cfg.WWDRCertPath != ""
}

// Write streams the zipped archive for pass to w.
func (p *Packager) Write(ctx context.Context, pass passkit.Pass, w io.Writer) error {
	files, err := p.assemble(ctx, pass)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(w)
	for _, name := range names {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("zip %s: %w", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			return fmt.Errorf("zip %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zip close: %w", err)
	}

	p.logger.Info("pkpass.write",
		"serial", pass.SerialNumber,
		"files", len(files),
		"signed", files[SignatureFile] != nil,
	)
	return nil
}

// WriteFile writes <dir>/<serial>.pkpass and returns its path.
func (p *Packager) WriteFile(ctx context.Context, pass passkit.Pass, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	var buf bytes.Buffer
	if err := p.Write(ctx, pass, &buf); err != nil {
		return "", err
	}
	out := filepath.Join(dir, FileName(pass))
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}

// FileName is the archive name for pass, safe for any filesystem.
func FileName(pass passkit.Pass) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, pass.SerialNumber)
	if name == "" {
		name = "pass"
	}
	return name + Extension
}

func (p *Packager) assemble(ctx context.Context, pass passkit.Pass) (map[string][]byte, error) {
	files := map[string][]byte{}

	pj, err := json.MarshalIndent(pass, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal pass: %w", err)
	}
	files[PassFile] = pj

	if err := p.addAssets(files); err != nil {
		return nil, err
	}

	manifest, err := Manifest(files)
	if err != nil {
		return nil, err
	}
	files[ManifestFile] = manifest

	if !p.Signed() {
		p.logger.Warn("pkpass.unsigned", "serial", pass.SerialNumber, "reason", "no signing certificate configured")
		return files, nil
	}
	sig, err := p.sign(ctx, manifest)
	if err != nil {
		return nil, common.NewAppError("SIGNING_FAILED", "could not sign pass manifest", err)
	}
	files[SignatureFile] = sig
	return files, nil
}

func (p *Packager) addAssets(files map[string][]byte) error {
	if p.cfg.AssetsDir != "" {
		for _, name := range append(append([]string{}, requiredAssets...), optionalAssets...) {
			b, err := os.ReadFile(filepath.Join(p.cfg.AssetsDir, name))
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return fmt.Errorf("read asset %s: %w", name, err)
			}
			files[name] = b
		}
	}
	// Wallet rejects passes without an icon.
	for i, name := range requiredAssets {
		if _, ok := files[name]; ok {
			continue
		}
		icon, err := placeholderIcon(29 * (i + 1))
		if err != nil {
			return err
		}
		files[name] = icon
		p.logger.Debug("pkpass.placeholder_icon", "file", name)
	}
	return nil
}

func placeholderIcon(size int) ([]byte, error) {
	img := imaging.New(size, size, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

// Manifest maps every file name to the hex SHA-1 of its content.
func Manifest(files map[string][]byte) ([]byte, error) {
	m := make(map[string]string, len(files))
	for name, b := range files {
		if name == ManifestFile || name == SignatureFile {
			continue
		}
		sum := sha1.Sum(b)
		m[name] = hex.EncodeToString(sum[:])
	}
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return out, nil
}
