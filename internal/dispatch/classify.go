package dispatch

import (
	"errors"

	"github.com/swxsoc/swxingest/internal/fetch"
	"github.com/swxsoc/swxingest/internal/objectstore"
	"github.com/swxsoc/swxingest/internal/secrets"
	"github.com/swxsoc/swxingest/internal/trigger"
)

// Error classes reported by Classify.
const (
	ClassInvalidEvent       = "invalid_event"
	ClassMalformedRuleArn   = "malformed_rule_arn"
	ClassUnknownFunction    = "unknown_function"
	ClassSecretProvisioning = "secret_provisioning"
	ClassExternalFetch      = "external_fetch"
	ClassUpload             = "upload"
	ClassInternal           = "internal"
)

// Classify maps an error onto its class label. nil maps to "".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var (
		invalid  *trigger.InvalidEventError
		arn      *trigger.MalformedRuleArnError
		unknown  *UnknownFunctionError
		secret   *secrets.ProvisioningError
		external *fetch.ExternalFetchError
		upload   *objectstore.UploadError
	)
	switch {
	case errors.As(err, &invalid):
		return ClassInvalidEvent
	case errors.As(err, &arn):
		return ClassMalformedRuleArn
	case errors.As(err, &unknown):
		return ClassUnknownFunction
	case errors.As(err, &secret):
		return ClassSecretProvisioning
	case errors.As(err, &external):
		return ClassExternalFetch
	case errors.As(err, &upload):
		return ClassUpload
	default:
		return ClassInternal
	}
}
