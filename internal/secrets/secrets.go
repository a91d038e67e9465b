// Package secrets loads credential bundles from a secret store at dispatcher
// construction.
//
// Loading is best effort: a failing secret is logged and recorded, never
// returned. The failure surfaces when a routine asks the Bundle for the
// credential, as a *ProvisioningError naming the secret and its cause.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/swxsoc/swxingest/internal/config"
	"github.com/swxsoc/swxingest/internal/log"
)

// Well-known credential names published by the default configuration.
const (
	GrafanaAPIKey = "GRAFANA_API_KEY"
	BasicAuth     = "BASICAUTH"
)

// Store fetches the raw secret string for an id.
type Store interface {
	GetSecretString(ctx context.Context, id string) (string, error)
}

var errNotProvisioned = errors.New("no secret configured under this name")

// ProvisioningError is returned by Bundle.Get for a credential that failed to load.
type ProvisioningError struct {
	Name     string
	SecretID string
	Err      error
}

func (e *ProvisioningError) Error() string {
	if e.SecretID != "" {
		return fmt.Sprintf("secret %s (%s) unavailable: %v", e.Name, e.SecretID, e.Err)
	}
	return fmt.Sprintf("secret %s unavailable: %v", e.Name, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Secret is the outcome of loading one credential: a value or the reason it is missing.
type Secret struct {
	Name     string
	SecretID string
	value    string
	err      error
}

// Value returns the credential or a *ProvisioningError.
func (s Secret) Value() (string, error) {
	if s.err != nil {
		return "", &ProvisioningError{Name: s.Name, SecretID: s.SecretID, Err: s.err}
	}
	return s.value, nil
}

// OK reports whether the credential loaded.
func (s Secret) OK() bool {
	return s.err == nil
}

// Bundle holds the loaded credentials keyed by upper-cased field name.
type Bundle struct {
	secrets map[string]Secret
}

// NewBundle builds a bundle from literal values. Intended for local runs and tests.
func NewBundle(values map[string]string) *Bundle {
	b := &Bundle{secrets: make(map[string]Secret, len(values))}
	for k, v := range values {
		name := strings.ToUpper(k)
		b.secrets[name] = Secret{Name: name, value: v}
	}
	return b
}

// Get returns the named credential or a *ProvisioningError explaining why it is absent.
func (b *Bundle) Get(name string) (string, error) {
	if b == nil {
		return "", &ProvisioningError{Name: name, Err: errNotProvisioned}
	}
	s, ok := b.secrets[name]
	if !ok {
		return "", &ProvisioningError{Name: name, Err: errNotProvisioned}
	}
	return s.Value()
}

// Getter returns a closure resolving name on each call.
func (b *Bundle) Getter(name string) func() (string, error) {
	return func() (string, error) { return b.Get(name) }
}

// Names lists the credentials known to the bundle, loaded or not.
func (b *Bundle) Names() []string {
	if b == nil {
		return nil
	}
	names := make([]string, 0, len(b.secrets))
	for n := range b.secrets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Provisioner resolves SecretSpecs against a Store.
type Provisioner struct {
	store     Store
	exportEnv bool
	lookupEnv func(string) (string, bool)
	setenv    func(string, string) error
	logger    *slog.Logger
}

// NewProvisioner creates a Provisioner. With exportEnv set, loaded values are
// also written to the process environment.
func NewProvisioner(store Store, exportEnv bool) *Provisioner {
	return &Provisioner{
		store:     store,
		exportEnv: exportEnv,
		lookupEnv: os.LookupEnv,
		setenv:    os.Setenv,
		logger:    log.WithComponent("secrets"),
	}
}

// Provision loads every spec. It never fails; see the package comment.
func (p *Provisioner) Provision(ctx context.Context, specs []config.SecretSpec) *Bundle {
	b := &Bundle{secrets: make(map[string]Secret, len(specs))}
	for _, spec := range specs {
		s := p.load(ctx, spec)
		b.secrets[s.Name] = s
		if !s.OK() {
			p.logger.Error("error loading secret", "secret", s.Name, "secret_id", s.SecretID, "error", s.err)
			continue
		}
		p.logger.Info("secret loaded", "secret", s.Name)
		if p.exportEnv {
			if err := p.setenv(s.Name, s.value); err != nil {
				p.logger.Warn("failed to export secret to environment", "secret", s.Name, "error", err)
			}
		}
	}
	return b
}

func (p *Provisioner) load(ctx context.Context, spec config.SecretSpec) Secret {
	s := Secret{Name: strings.ToUpper(spec.Field)}

	id, err := p.resolveID(spec)
	if err != nil {
		s.err = err
		return s
	}
	s.SecretID = id

	if p.store == nil {
		s.err = errors.New("no secret store configured")
		return s
	}

	raw, err := p.store.GetSecretString(ctx, id)
	if err != nil {
		s.err = fmt.Errorf("fetch secret: %w", err)
		return s
	}

	value, err := extractField(raw, spec.Field)
	if err != nil {
		s.err = err
		return s
	}
	s.value = value
	return s
}

func (p *Provisioner) resolveID(spec config.SecretSpec) (string, error) {
	if spec.ID != "" {
		return spec.ID, nil
	}
	if v, ok := p.lookupEnv(spec.IDEnv); ok && v != "" {
		return v, nil
	}
	if spec.LegacyIDEnv != "" {
		if v, ok := p.lookupEnv(spec.LegacyIDEnv); ok && v != "" {
			return v, nil
		}
		return "", fmt.Errorf("secret id not set: neither $%s nor $%s is defined", spec.IDEnv, spec.LegacyIDEnv)
	}
	return "", fmt.Errorf("secret id not set: $%s is not defined", spec.IDEnv)
}

// extractField parses the secret string as a JSON object and returns one field.
func extractField(raw, field string) (string, error) {
	var bundle map[string]any
	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		return "", fmt.Errorf("secret is not a JSON object: %w", err)
	}
	v, ok := bundle[field]
	if !ok {
		return "", fmt.Errorf("secret has no field %q", field)
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case nil:
		return "", fmt.Errorf("secret field %q is null", field)
	default:
		return fmt.Sprint(val), nil
	}
}
