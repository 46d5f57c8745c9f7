package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// lightweight per-user secret store (file, 0600) with AES-GCM obfuscation.
// Not a replacement for OS keychains but avoids plain-text config.

// ErrNotFound is returned when no key is stored for a provider.
var ErrNotFound = errors.New("secrets: key not found")

const fileName = "keys.json"

type secretFile struct {
	Keys map[string]string `json:"keys"` // provider -> base64(ciphertext)
}

// Store keeps provider API keys in dir/keys.json.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. An empty dir means the user config
// directory.
func NewStore(dir string) *Store { return &Store{dir: dir} }

func (s *Store) Put(provider, key string) error {
	if provider = norm(provider); provider == "" {
		return fmt.Errorf("provider required")
	}
	path, err := s.filePath()
	if err != nil {
		return err
	}
	sf, _ := load(path)
	if sf.Keys == nil {
		sf.Keys = map[string]string{}
	}
	ct, err := encrypt([]byte(key))
	if err != nil {
		return err
	}
	sf.Keys[provider] = base64.StdEncoding.EncodeToString(ct)
	return save(path, sf)
}

// Get returns the stored key for provider, or ErrNotFound.
func (s *Store) Get(provider string) (string, error) {
	if provider = norm(provider); provider == "" {
		return "", fmt.Errorf("provider required")
	}
	path, err := s.filePath()
	if err != nil {
		return "", err
	}
	sf, err := load(path)
	if err != nil {
		return "", err
	}
	enc, ok := sf.Keys[provider]
	if !ok {
		return "", ErrNotFound
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", err
	}
	pt, err := decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

func (s *Store) Delete(provider string) error {
	if provider = norm(provider); provider == "" {
		return fmt.Errorf("provider required")
	}
	path, err := s.filePath()
	if err != nil {
		return err
	}
	sf, err := load(path)
	if err != nil {
		return err
	}
	delete(sf.Keys, provider)
	return save(path, sf)
}

func (s *Store) filePath() (string, error) {
	dir := s.dir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "teammate")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil { // restrict directory
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

func load(path string) (secretFile, error) {
	var sf secretFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return secretFile{}, nil
		}
		return sf, err
	}
	if err := json.Unmarshal(data, &sf); err != nil {
		return sf, err
	}
	return sf, nil
}

func save(path string, sf secretFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func norm(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func masterKey() ([]byte, error) {
	user := os.Getenv("USER")
	base := fmt.Sprintf("teammate-%s-%s", runtime.GOOS, user)
	hash := sha256.Sum256([]byte(base))
	return hash[:], nil
}

func encrypt(plain []byte) ([]byte, error) {
	key, err := masterKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	key, err := masterKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	body := ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
