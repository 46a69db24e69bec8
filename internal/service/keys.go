package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SCP-015/nusahire/internal/config"
	"github.com/SCP-015/nusahire/internal/domain/oauth"
)

// KeyPair is the signing key and the independently configured verification
// key published to partner systems.
type KeyPair struct {
	Private   *rsa.PrivateKey
	Public    *rsa.PublicKey
	PublicPEM []byte
	ModTime   time.Time
}

// LoadKeyPair reads both keys from inline PEM or files. The public key is
// mandatory and must match the private key.
func LoadKeyPair(cfg config.OAuth) (*KeyPair, error) {
	privPEM, _, err := readPEM(cfg.PrivateKey, cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubPEM, modTime, err := readPEM(cfg.PublicKey, cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, errors.New("public key does not match private key")
	}

	return &KeyPair{Private: priv, Public: pub, PublicPEM: pubPEM, ModTime: modTime}, nil
}

// readPEM prefers inline material. Inline keys report the load time as
// their modification time.
func readPEM(inline, path string) ([]byte, time.Time, error) {
	if inline != "" {
		return []byte(inline), time.Now().UTC().Truncate(time.Second), nil
	}
	if path == "" {
		return nil, time.Time{}, errors.New("not configured")
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		return nil, time.Time{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, info.ModTime().UTC().Truncate(time.Second), nil
}

// Document describes the verification key for downstream systems.
func (k *KeyPair) Document() oauth.PublicKeyDocument {
	sum := sha256.Sum256(k.PublicPEM)
	return oauth.PublicKeyDocument{
		PublicKey:    string(k.PublicPEM),
		Algorithm:    oauth.Algorithm,
		Format:       "PEM",
		Fingerprint:  hex.EncodeToString(sum[:]),
		LastModified: k.ModTime,
	}
}

// GenerateKeyPEM creates a new RSA key and returns PKCS#8 private and PKIX
// public PEM blocks.
func GenerateKeyPEM(bits int) (privPEM, pubPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM, nil
}
