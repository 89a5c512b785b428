// Package contracts embeds the OpenAPI documents served and enforced by the binaries.
package contracts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed onboarding.yaml
var onboardingYAML []byte

//go:embed provisioning.yaml
var provisioningYAML []byte

// Names of the embedded documents, as used by the docs routes.
const (
	OnboardingName   = "onboarding"
	ProvisioningName = "provisioning"
)

// Raw returns the YAML source of a named document.
func Raw(name string) ([]byte, bool) {
	switch name {
	case OnboardingName:
		return onboardingYAML, true
	case ProvisioningName:
		return provisioningYAML, true
	default:
		return nil, false
	}
}

// Onboarding parses and validates the onboarding API contract.
func Onboarding() (*openapi3.T, error) {
	return load(OnboardingName, onboardingYAML)
}

// Provisioning parses and validates the provisioning API contract.
func Provisioning() (*openapi3.T, error) {
	return load(ProvisioningName, provisioningYAML)
}

func load(name string, data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("load %s contract: %w", name, err)
	}
	if err := spec.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate %s contract: %w", name, err)
	}
	return spec, nil
}
