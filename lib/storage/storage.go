package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// ErrNotFound is returned when a reference points to no stored object
var ErrNotFound = errors.New("document not found")

// Metadata describes a stored artefact
type Metadata struct {
	ProjectID   string
	Kind        string
	ContentType string
}

// Store is the document store used for rendered artefacts
type Store interface {
	Put(ctx context.Context, data []byte, meta Metadata) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	PresignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

// URLClaims is carried by presigned download tokens
type URLClaims struct {
	Ref string `json:"ref"`
	jwt.RegisteredClaims
}

// LocalStore keeps documents on the local filesystem
type LocalStore struct {
	root    string
	baseURL string
	secret  []byte
}

// NewLocalStore creates a filesystem store rooted at root. Presigned URLs
// point at baseURL and are signed with secret.
func NewLocalStore(root, baseURL, secret string) (*LocalStore, error) {
	if secret == "" {
		return nil, errors.New("document URL secret is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document root: %w", err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
	}, nil
}

// Put writes data under a fresh reference grouped by project
func (s *LocalStore) Put(ctx context.Context, data []byte, meta Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := meta.ProjectID
	if dir == "" {
		dir = "misc"
	}
	kind := strings.ToLower(meta.Kind)
	if kind == "" {
		kind = "document"
	}
	ref := filepath.ToSlash(filepath.Join(dir, fmt.Sprintf("%s-%s.txt", kind, uuid.NewString())))

	path, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return ref, nil
}

// Get reads the bytes stored under ref
func (s *LocalStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// PresignedURL returns a download URL valid for ttl
func (s *LocalStore) PresignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	if _, err := s.resolve(ref); err != nil {
		return "", err
	}
	now := time.Now()
	claims := URLClaims{
		Ref: ref,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/v1/documents/download?token=%s", s.baseURL, url.QueryEscape(token)), nil
}

// VerifyURLToken validates a presigned token and returns the reference it grants
func (s *LocalStore) VerifyURLToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &URLClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*URLClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid download token")
	}
	return claims.Ref, nil
}

func (s *LocalStore) resolve(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if ref == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid document reference %q", ref)
	}
	return filepath.Join(s.root, clean), nil
}

// Checksum returns the hex BLAKE2b-256 digest of data
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
