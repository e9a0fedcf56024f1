package execx

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// ErrHelperTampered is returned when the askpass helper on disk does not
// match its recorded checksum. Treated as a fatal configuration error: no
// privileged command is launched through an unverified helper.
var ErrHelperTampered = errors.New("askpass helper checksum mismatch")

// VerifyHelper checks the password-prompt helper script at path against its
// expected sha256 (lowercase hex). It must be called once before any command
// that may prompt for elevated privileges.
func VerifyHelper(path, wantSHA256 string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read askpass helper %s: %w", path, err)
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != wantSHA256 {
		return fmt.Errorf("%w: %s", ErrHelperTampered, path)
	}
	return nil
}

// AskpassEnv returns the environment entries that route privileged password
// prompts through the verified helper.
func AskpassEnv(path string) []string {
	return []string{"SUDO_ASKPASS=" + path}
}
