package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/scrypt"
)

// Secrets-at-rest parameters. Grounded on the teacher's secrets.json.enc
// scheme: scrypt-derived AES-256-GCM, [salt][nonce][ciphertext+tag] layout.
const (
	secretsFileName = "credentials.json.enc"
	saltSize        = 16
	nonceSize       = 12
	scryptN         = 32768
	scryptR         = 8
	scryptP         = 1
	keySize         = 32
)

var (
	decryptedSecrets    map[string]string //nolint:gochecknoglobals
	decryptedSecretsMux sync.RWMutex      //nolint:gochecknoglobals
)

// GetSecret resolves a credential (e.g. "ANTHROPIC_API_KEY") by checking the
// in-memory decrypted store first, then the environment. The pipeline core
// never calls this directly — only the llmrt provider constructors do, at
// the boundary where a concrete backend is built.
func GetSecret(name string) (string, error) {
	decryptedSecretsMux.RLock()
	if v, ok := decryptedSecrets[name]; ok && v != "" {
		decryptedSecretsMux.RUnlock()
		return v, nil
	}
	decryptedSecretsMux.RUnlock()

	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("secret %s not found in credentials file or environment", name)
}

// LoadCredentialsFile decrypts credentials.json.enc under baseDir/.noctua
// with the given passphrase and makes its entries available to GetSecret.
// Absent a credentials file this is a no-op — plain environment variables
// remain sufficient.
func LoadCredentialsFile(baseDir, passphrase string) error {
	path := credentialsPath(baseDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	secrets, err := decryptSecretsFile(path, passphrase)
	if err != nil {
		return err
	}

	decryptedSecretsMux.Lock()
	decryptedSecrets = secrets
	decryptedSecretsMux.Unlock()
	return nil
}

// SaveCredentialsFile encrypts secrets and writes them to baseDir/.noctua,
// with file mode 0600.
func SaveCredentialsFile(baseDir, passphrase string, secrets map[string]string) error {
	passwordBytes := []byte(passphrase)
	defer zero(passwordBytes)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	defer zero(key)

	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	fileData := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = append(fileData, ciphertext...)

	dir := filepath.Join(baseDir, ".noctua")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := os.WriteFile(credentialsPath(baseDir), fileData, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}

func decryptSecretsFile(path, passphrase string) (map[string]string, error) {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	minSize := saltSize + nonceSize + 16
	if len(fileData) < minSize {
		return nil, fmt.Errorf("credentials file is corrupted or invalid format")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	ciphertext := fileData[saltSize+nonceSize:]

	passwordBytes := []byte(passphrase)
	defer zero(passwordBytes)

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials file (wrong passphrase?): %w", err)
	}

	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}
	return secrets, nil
}

func credentialsPath(baseDir string) string {
	return filepath.Join(baseDir, ".noctua", secretsFileName)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
