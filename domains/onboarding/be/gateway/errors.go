package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means a write returned no record.
	ErrNoData = errors.New("no data returned")

	errTenantNoData     = fmt.Errorf("failed to create tenant, %w", ErrNoData)
	errMembershipNoData = fmt.Errorf("failed to associate user with tenant, %w", ErrNoData)
)

// GatewayError wraps a failed or empty data-store call.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ProvisioningError reports a failed call to the provisioning endpoint.
// StatusCode is zero for transport failures.
type ProvisioningError struct {
	Handle     string
	StatusCode int
	Err        error
}

func (e *ProvisioningError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provisioning %q: unexpected status %d", e.Handle, e.StatusCode)
	}
	return fmt.Sprintf("provisioning %q: %v", e.Handle, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// ConfigurationError is returned before any call is attempted when a collaborator is not configured.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("gateway not configured: %s is missing", e.Missing)
}
