package protocol

import (
	"context"
	"fmt"
	"os"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/crypto"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/goccy/go-json"
	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"
)

// unmarshalConfig reads a config file, decrypting it first when an encryption key is set
func unmarshalConfig(ctx context.Context, path string, dest any) error {
	key := viper.GetString(constants.EncryptionKey)
	if key == "" {
		return utils.UnmarshalFile(path, dest)
	}

	cipher, err := crypto.New(key)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("file not found: %s", err)
	}
	plain, err := cipher.DecryptJSON(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to decrypt file[%s]: %s", path, err)
	}
	// decrypted documents may be yaml too
	if plain, err = yaml.YAMLToJSON(plain); err != nil {
		return fmt.Errorf("failed to convert decrypted file[%s]: %s", path, err)
	}
	if err := json.Unmarshal(plain, dest); err != nil {
		return fmt.Errorf("failed to unmarshal file[%s]: %s", path, err)
	}
	return nil
}
