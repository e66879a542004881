package localhost

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/core/host"
	"github.com/hay-kot/savedeck/internal/core/pathkey"
)

// ErrAccessDenied is returned by EntryWithURL for paths outside the granted roots.
var ErrAccessDenied = errors.New("path outside granted file access")

const (
	issuer        = "savedeck"
	kindPersist   = "persistent"
	kindSession   = "session"
	secretSize    = 32
	defaultTTL    = 10 * time.Minute
	secretFileMod = 0o600
)

var drivePath = regexp.MustCompile(`^/[A-Za-z]:`)

// FileSystemOptions configures a FileSystem.
type FileSystemOptions struct {
	// SecretFile holds the signing key. Created on first use.
	SecretFile string
	// SessionTTL bounds the lifetime of write handles.
	SessionTTL time.Duration
	// FullAccess allows EntryWithURL for any existing file.
	FullAccess bool
	// Roots are doublestar patterns EntryWithURL may resolve when FullAccess is off.
	Roots []string
	// Now overrides the clock.
	Now func() time.Time
}

type claims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// FileSystem issues and resolves file access tokens. Tokens are HS256 JWTs
// signed with a per-install secret, so rotating the secret revokes them all.
type FileSystem struct {
	opts FileSystemOptions
	log  zerolog.Logger

	mu     sync.Mutex
	secret []byte
}

// NewFileSystem creates a FileSystem.
func NewFileSystem(opts FileSystemOptions, log zerolog.Logger) *FileSystem {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &FileSystem{opts: opts, log: log}
}

// EntryForPersistentToken resolves a token created by CreatePersistentToken.
func (fs *FileSystem) EntryForPersistentToken(_ context.Context, token string) (host.Entry, error) {
	c, err := fs.parse(token, kindPersist)
	if err != nil {
		return host.Entry{}, err
	}
	return existingEntry(c.Path)
}

// EntryWithURL resolves a file: URL to an entry when access to the path has
// been granted by configuration and the file exists.
func (fs *FileSystem) EntryWithURL(_ context.Context, raw string) (host.Entry, error) {
	path, err := PathFromURL(raw)
	if err != nil {
		return host.Entry{}, err
	}

	if !fs.allowed(path) {
		return host.Entry{}, fmt.Errorf("%s: %w", path, ErrAccessDenied)
	}

	return existingEntry(path)
}

// CreatePersistentToken issues a token that survives restarts.
func (fs *FileSystem) CreatePersistentToken(_ context.Context, e host.Entry) (string, error) {
	now := fs.opts.Now()
	return fs.sign(claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
		Kind: kindPersist,
		Path: e.Path,
	})
}

// CreateSessionToken issues a write handle valid for the session TTL.
func (fs *FileSystem) CreateSessionToken(_ context.Context, e host.Entry) (host.Handle, error) {
	now := fs.opts.Now()
	expires := now.Add(fs.opts.SessionTTL)

	token, err := fs.sign(claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Kind: kindSession,
		Path: e.Path,
	})
	if err != nil {
		return host.Handle{}, err
	}

	return host.Handle{Entry: e, Session: token, Expires: expires}, nil
}

// VerifySession checks that h carries a live session token for its entry.
// Failures wrap host.ErrInvalidToken.
func (fs *FileSystem) VerifySession(h host.Handle) error {
	c, err := fs.parse(h.Session, kindSession)
	if err != nil {
		return err
	}
	if !pathkey.Equal(c.Path, h.Entry.Path) {
		return fmt.Errorf("%w: token issued for %s", host.ErrInvalidToken, c.Path)
	}
	return nil
}

// RotateSecret replaces the signing key, revoking every issued token.
func (fs *FileSystem) RotateSecret() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	secret, err := fs.writeSecret()
	if err != nil {
		return err
	}
	fs.secret = secret
	fs.log.Info().Str("file", fs.opts.SecretFile).Msg("rotated token secret")
	return nil
}

func (fs *FileSystem) sign(c claims) (string, error) {
	key, err := fs.key()
	if err != nil {
		return "", err
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (fs *FileSystem) parse(token, kind string) (claims, error) {
	if token == "" {
		return claims{}, fmt.Errorf("%w: empty token", host.ErrInvalidToken)
	}

	key, err := fs.key()
	if err != nil {
		return claims{}, err
	}

	var c claims
	_, err = jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(fs.opts.Now),
	)
	if err != nil {
		return claims{}, fmt.Errorf("%w: %v", host.ErrInvalidToken, err)
	}

	if c.Kind != kind {
		return claims{}, fmt.Errorf("%w: expected %s token, got %q", host.ErrInvalidToken, kind, c.Kind)
	}
	return c, nil
}

// key returns the signing secret, loading or creating it on first use.
func (fs *FileSystem) key() ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.secret != nil {
		return fs.secret, nil
	}

	if fs.opts.SecretFile == "" {
		secret, err := newSecret()
		if err != nil {
			return nil, err
		}
		fs.secret = secret
		return secret, nil
	}

	data, err := os.ReadFile(fs.opts.SecretFile)
	switch {
	case err == nil && len(data) >= secretSize:
		fs.secret = data
		return data, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read token secret: %w", err)
	}

	secret, err := fs.writeSecret()
	if err != nil {
		return nil, err
	}
	fs.secret = secret
	return secret, nil
}

func (fs *FileSystem) writeSecret() ([]byte, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}

	if fs.opts.SecretFile == "" {
		return secret, nil
	}

	if err := os.MkdirAll(filepath.Dir(fs.opts.SecretFile), 0o755); err != nil {
		return nil, fmt.Errorf("create secret dir: %w", err)
	}
	if err := os.WriteFile(fs.opts.SecretFile, secret, secretFileMod); err != nil {
		return nil, fmt.Errorf("write token secret: %w", err)
	}
	return secret, nil
}

func (fs *FileSystem) allowed(path string) bool {
	if fs.opts.FullAccess {
		return true
	}

	slashed := filepath.ToSlash(path)
	for _, root := range fs.opts.Roots {
		ok, err := doublestar.Match(filepath.ToSlash(root), slashed)
		if err != nil {
			fs.log.Warn().Err(err).Str("pattern", root).Msg("invalid access root")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func newSecret() ([]byte, error) {
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}
	return secret, nil
}

func existingEntry(path string) (host.Entry, error) {
	info, err := os.Stat(filepath.FromSlash(path))
	if err != nil || info.IsDir() {
		return host.Entry{}, fmt.Errorf("%s: %w", path, host.ErrEntryNotFound)
	}
	return host.Entry{Path: path, Name: format.Base(path)}, nil
}

// PathFromURL converts a file: URL in any of the forms the broker produces
// (file:/C:/x, file:///C:/x, file://server/share, file:///tmp/x, file:/tmp/x)
// back into a path.
func PathFromURL(raw string) (string, error) {
	rest, ok := strings.CutPrefix(raw, "file:")
	if !ok {
		return "", fmt.Errorf("not a file url: %q", raw)
	}

	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}

	switch {
	case strings.HasPrefix(rest, "////"):
		rest = rest[2:]
	case strings.HasPrefix(rest, "///"):
		rest = rest[2:]
	}

	if drivePath.MatchString(rest) {
		rest = rest[1:]
	}

	if rest == "" {
		return "", fmt.Errorf("empty path in %q", raw)
	}
	return rest, nil
}
