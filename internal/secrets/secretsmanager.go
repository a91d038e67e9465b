package secrets

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerStore reads secrets from AWS Secrets Manager.
type SecretsManagerStore struct {
	client SecretsManagerAPI
}

// NewSecretsManagerStore wraps an existing client.
func NewSecretsManagerStore(client SecretsManagerAPI) *SecretsManagerStore {
	return &SecretsManagerStore{client: client}
}

// GetSecretString returns the SecretString of the secret's current version.
func (s *SecretsManagerStore) GetSecretString(ctx context.Context, id string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return "", err
	}
	if out.SecretString == nil {
		return "", errors.New("secret has no string value")
	}
	return aws.ToString(out.SecretString), nil
}
