// fetcher.go
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"zombiezen.com/go/nix"
)

// ErrHashMismatch indicates the archive does not match its checksum
var ErrHashMismatch = errors.New("hash mismatch")

const userAgent = "pgformula/1.0"

// Config configures the Fetcher
type Config struct {
	CachePath  string        // Downloads land in <CachePath>/downloads
	Timeout    time.Duration // HTTP timeout, default 2 minutes
	HTTPClient *http.Client  // Overrides Timeout when set
	Debug      bool          // Enable debug logging
	Logger     *log.Logger   // Custom logger (optional)
}

// Fetcher downloads, verifies and unpacks source archives
type Fetcher struct {
	http   *http.Client
	config *Config
	logger *log.Logger
}

// New creates a new Fetcher
func New(cfg *Config) *Fetcher {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join(os.TempDir(), "pgformula")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}

	// Setup logger
	logger := cfg.Logger
	if logger == nil {
		if cfg.Debug {
			logger = log.New(os.Stdout, "[DEBUG] ", log.LstdFlags)
		} else {
			logger = log.New(io.Discard, "", 0)
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				IdleConnTimeout: 90 * time.Second,
			},
		}
	}

	return &Fetcher{
		http:   client,
		config: cfg,
		logger: logger,
	}
}

// ArchivePath is where Fetch stores the archive for rawURL
func (f *Fetcher) ArchivePath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("url has no file name: %s", rawURL)
	}
	return filepath.Join(f.config.CachePath, "downloads", name), nil
}

// Fetch downloads rawURL into the cache and verifies it against checksum.
// A cached archive that already verifies is reused.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, checksum string) (string, error) {
	dest, err := f.ArchivePath(rawURL)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(dest); err == nil {
		if err := f.Verify(dest, checksum); err == nil {
			f.logger.Printf("  ✓ Using cached %s", dest)
			return dest, nil
		}
		f.logger.Printf("  ⚠️  Cached %s failed verification, downloading again", dest)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".incomplete-*")
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer os.Remove(tmp.Name())

	f.logger.Printf("Downloading %s", rawURL)
	written, err := f.download(ctx, rawURL, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	f.logger.Printf("  ✓ Downloaded %d bytes", written)

	if err := f.Verify(tmp.Name(), checksum); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("moving archive into cache: %w", err)
	}
	return dest, nil
}

// download streams the body of rawURL into w
func (f *Fetcher) download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if resp.ContentLength > 0 {
		f.logger.Printf("  Size: %d bytes", resp.ContentLength)
	}

	return io.Copy(w, resp.Body)
}

// Verify checks the file at filePath against checksum, given in nix hash
// syntax: "md5:<hex>", "sha256:<hex or nix base32>" or an SRI hash.
func (f *Fetcher) Verify(filePath, checksum string) error {
	want, err := nix.ParseHash(checksum)
	if err != nil {
		return fmt.Errorf("parsing checksum %q: %w", checksum, err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	h := nix.NewHasher(want.Type())
	if _, err := io.Copy(h, file); err != nil {
		return fmt.Errorf("computing hash: %w", err)
	}
	got := h.SumHash()

	f.logger.Printf("  Expected: %v", want)
	f.logger.Printf("  Actual:   %v", got)

	if got.String() != want.String() {
		return fmt.Errorf("%w: %s: expected %v, got %v", ErrHashMismatch, filepath.Base(filePath), want, got)
	}
	return nil
}
