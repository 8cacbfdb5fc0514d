package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_EncryptDecrypt(t *testing.T) {
	codec := NewCodec("chave-de-teste")

	creds := &Credentials{
		AccessToken: "shpat_token",
		APIKey:      "sk_live_123",
		Extra:       map[string]string{"shop_domain": "loja.myshopify.com"},
	}

	ciphertext, err := codec.Encrypt(creds)
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "shpat_token")

	decrypted, err := codec.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, creds, decrypted)
}

func TestCodec_NonceAleatorioPorEscrita(t *testing.T) {
	codec := NewCodec("chave-de-teste")
	creds := &Credentials{AccessToken: "token"}

	first, err := codec.Encrypt(creds)
	require.NoError(t, err)
	second, err := codec.Encrypt(creds)
	require.NoError(t, err)

	// mesmo conteúdo produz ciphertexts distintos
	assert.NotEqual(t, first, second)
}

func TestCodec_ChaveErradaFalha(t *testing.T) {
	ciphertext, err := NewCodec("chave-a").Encrypt(&Credentials{AccessToken: "token"})
	require.NoError(t, err)

	_, err = NewCodec("chave-b").Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestCodec_CiphertextAdulteradoFalha(t *testing.T) {
	codec := NewCodec("chave-de-teste")

	ciphertext, err := codec.Encrypt(&Credentials{AccessToken: "token"})
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xff

	_, err = codec.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestCodec_BundleCurtoFalha(t *testing.T) {
	codec := NewCodec("chave-de-teste")

	_, err := codec.Decrypt([]byte("curto"))
	assert.Error(t, err)
}
