package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"
	"github.com/goccy/go-json"
)

const kmsPrefix = "arn:aws:kms:"

type cryptoObj struct {
	EncryptedData string `json:"encrypted_data"`
}

// Cipher decrypts config files: through KMS when the key is a KMS key ARN,
// otherwise with AES-GCM under the SHA-256 of the key
type Cipher struct {
	kms      kmsiface.KMSAPI
	localKey []byte
}

func New(key string) (*Cipher, error) {
	if key == "" {
		return nil, errors.New("encryption key is empty")
	}

	if strings.HasPrefix(key, kmsPrefix) {
		sess, err := session.NewSessionWithOptions(session.Options{SharedConfigState: session.SharedConfigEnable})
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return &Cipher{kms: kms.New(sess)}, nil
	}

	hash := sha256.Sum256([]byte(key))
	return &Cipher{localKey: hash[:]}, nil
}

func (c *Cipher) Decrypt(ctx context.Context, cipherData []byte) ([]byte, error) {
	if c.kms != nil {
		out, err := c.kms.DecryptWithContext(ctx, &kms.DecryptInput{
			CiphertextBlob: cipherData,
		})
		if err != nil {
			return nil, fmt.Errorf("decryption failed: %w", err)
		}
		return out.Plaintext, nil
	}

	aead, err := c.aead()
	if err != nil {
		return nil, err
	}

	nonceSize := aead.NonceSize()
	if len(cipherData) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := cipherData[:nonceSize], cipherData[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// Encrypt is the local counterpart of Decrypt, KMS keys encrypt outside of the tap
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	if c.kms != nil {
		return nil, errors.New("encryption with a KMS key is not supported")
	}

	aead, err := c.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *Cipher) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.localKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// DecryptJSON opens a {"encrypted_data": "<base64>"} document
func (c *Cipher) DecryptJSON(ctx context.Context, encryptedObj []byte) ([]byte, error) {
	obj := cryptoObj{}
	if err := json.Unmarshal(encryptedObj, &obj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal encrypted data: %v", err)
	}

	encryptedData, err := base64.StdEncoding.DecodeString(obj.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 data: %v", err)
	}

	decrypted, err := c.Decrypt(ctx, encryptedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt data: %v", err)
	}

	return decrypted, nil
}

// EncryptJSON wraps plaintext in the document DecryptJSON reads
func (c *Cipher) EncryptJSON(plaintext []byte) ([]byte, error) {
	encrypted, err := c.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	return json.Marshal(cryptoObj{EncryptedData: base64.StdEncoding.EncodeToString(encrypted)})
}
