package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Credentials é o bundle de credenciais de uma integração, armazenado
// sempre criptografado no banco
type Credentials struct {
	AccessToken string            `json:"access_token,omitempty"`
	APIKey      string            `json:"api_key,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Codec criptografa e decifra bundles de credenciais
type Codec struct {
	key []byte
}

// NewCodec deriva a chave de criptografia a partir da secret key da aplicação
func NewCodec(secretKey string) *Codec {
	sum := sha256.Sum256([]byte(secretKey))
	return &Codec{key: sum[:]}
}

// Encrypt serializa e criptografa o bundle de credenciais
func (c *Codec) Encrypt(creds *Credentials) ([]byte, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("erro ao serializar credenciais: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar cifra: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("erro ao gerar nonce: %w", err)
	}

	// nonce prefixado ao ciphertext
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decifra e desserializa o bundle de credenciais
func (c *Codec) Decrypt(ciphertext []byte) (*Credentials, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar cifra: %w", err)
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, fmt.Errorf("bundle de credenciais inválido")
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao decifrar credenciais: %w", err)
	}

	creds := &Credentials{}
	if err := json.Unmarshal(plaintext, creds); err != nil {
		return nil, fmt.Errorf("erro ao desserializar credenciais: %w", err)
	}

	return creds, nil
}
