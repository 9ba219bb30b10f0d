package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var errNoSecretDataFound = errors.New("secret has neither a string nor a binary value")

// SecretsOverlay holds the credentials kept out of the configuration file.
// Empty fields leave the configured value untouched.
type SecretsOverlay struct {
	DatabasePassword string `json:"database_password"`
	DatabaseUser     string `json:"database_user"`
	PublishSecret    string `json:"publish_secret"`
}

// secretGetter is the part of the Secrets Manager client the overlay uses.
type secretGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadSecretsFromAWS overlays the configured secret onto cfg. It does
// nothing when secrets are disabled.
func LoadSecretsFromAWS(ctx context.Context, cfg *Config) error {
	if !cfg.Secrets.Enabled {
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Secrets.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	return applySecrets(ctx, secretsmanager.NewFromConfig(awsCfg), cfg)
}

func applySecrets(ctx context.Context, client secretGetter, cfg *Config) error {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.Secrets.SecretName),
	})
	if err != nil {
		return fmt.Errorf("failed to get secret %s: %w", cfg.Secrets.SecretName, err)
	}

	secrets, err := parseSecretData(out)
	if err != nil {
		return err
	}
	overlaySecretsOnConfig(cfg, secrets)
	return nil
}

func parseSecretData(out *secretsmanager.GetSecretValueOutput) (*SecretsOverlay, error) {
	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(*out.SecretString)
	case out.SecretBinary != nil:
		raw = out.SecretBinary
	default:
		return nil, errNoSecretDataFound
	}

	var secrets SecretsOverlay
	if err := json.Unmarshal(raw, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secret: %w", err)
	}
	return &secrets, nil
}

func overlaySecretsOnConfig(cfg *Config, secrets *SecretsOverlay) {
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&cfg.Database.Password, secrets.DatabasePassword},
		{&cfg.Database.User, secrets.DatabaseUser},
		{&cfg.Publish.Secret, secrets.PublishSecret},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
}
