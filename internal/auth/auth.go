// Package auth locates the Gemini API key for a run.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"
)

const (
	// EnvAPIKey holds the key directly.
	EnvAPIKey = "GEMINI_API_KEY"
	// EnvSSMParam names an SSM SecureString parameter holding the key.
	EnvSSMParam = "SSM_API_KEY_PARAM"

	credentialDir  = ".asset-classifier"
	credentialFile = "credentials.gpg"

	// KeyringService and KeyringUser locate the key in the OS keyring.
	KeyringService = "asset-classifier"
	KeyringUser    = "gemini-api-key"
)

// ErrNoCredential is returned when no source yields an API key.
var ErrNoCredential = errors.New("Gemini API key not found")

// ParameterGetter is the part of the SSM client used to read the key.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// newSSMClient builds an SSM client from the default AWS credential chain.
var newSSMClient = func(ctx context.Context) (ParameterGetter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. GEMINI_API_KEY environment variable
//  2. SSM parameter named by SSM_API_KEY_PARAM
//  3. OS keyring entry asset-classifier/gemini-api-key
//  4. GPG-encrypted file at ~/.asset-classifier/credentials.gpg
func GetAPIKey(ctx context.Context) (string, error) {
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, nil
	}

	var errs []error

	if param := strings.TrimSpace(os.Getenv(EnvSSMParam)); param != "" {
		client, err := newSSMClient(ctx)
		if err == nil {
			var key string
			key, err = FromSSM(ctx, client, param)
			if err == nil {
				log.Debug().Str("param", param).Msg("Using API key from SSM Parameter Store")
				return key, nil
			}
		}
		log.Warn().Err(err).Str("param", param).Msg("Failed to read API key from SSM")
		errs = append(errs, err)
	}

	key, err := keyring.Get(KeyringService, KeyringUser)
	if err == nil && strings.TrimSpace(key) != "" {
		log.Debug().Msg("Using API key from OS keyring")
		return strings.TrimSpace(key), nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		log.Debug().Err(err).Msg("OS keyring unavailable")
		errs = append(errs, err)
	}

	key, err = getFromGPG()
	if err == nil && key != "" {
		log.Debug().Msg("Using API key from GPG encrypted file")
		return key, nil
	}
	if err != nil {
		errs = append(errs, err)
	}

	log.Debug().Err(errors.Join(errs...)).Msg("No API key source available")
	return "", fmt.Errorf("%w: set %s (for example: export %s=\"AIza...\")", ErrNoCredential, EnvAPIKey, EnvAPIKey)
}

// FromSSM reads and decrypts a SecureString parameter.
func FromSSM(ctx context.Context, client ParameterGetter, name string) (string, error) {
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get SSM parameter %s: %w", name, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("SSM parameter %s has no value", name)
	}
	value := strings.TrimSpace(*result.Parameter.Value)
	if value == "" {
		return "", fmt.Errorf("SSM parameter %s is empty", name)
	}
	return value, nil
}

// getFromGPG decrypts the API key from the GPG-encrypted credentials file.
func getFromGPG() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(credPath); os.IsNotExist(err) {
		return "", fmt.Errorf("GPG credentials file not found at %s", credPath)
	}

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")

	args := []string{"--decrypt", "--quiet"}

	if passphrasePath, err := getPassphrasePath(); err == nil {
		fi, statErr := os.Stat(passphrasePath)
		if statErr == nil {
			// Passphrase file must be owner-only.
			mode := fi.Mode().Perm()
			if mode&0077 != 0 {
				log.Warn().
					Str("passphrase_file", passphrasePath).
					Str("permissions", fmt.Sprintf("%04o", mode)).
					Msg("Passphrase file has insecure permissions (should be 0600); skipping")
			} else {
				log.Debug().Str("passphrase_file", passphrasePath).Msg("Using passphrase file for GPG decryption")
				args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", passphrasePath)
			}
		}
	}

	args = append(args, credPath)
	cmd := exec.Command("gpg", args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// getCredentialPath returns the full path to the credentials file.
func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, credentialDir, credentialFile), nil
}

// getPassphrasePath looks for .gpg-passphrase next to the executable, then in
// the working directory.
func getPassphrasePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	passphrasePath := filepath.Join(filepath.Dir(exe), ".gpg-passphrase")
	if _, err := os.Stat(passphrasePath); err == nil {
		return passphrasePath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	return filepath.Join(cwd, ".gpg-passphrase"), nil
}
