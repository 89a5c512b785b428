package tenant

import (
	"errors"
	"strings"

	"github.com/monynha/botecopro/platform/go/validation"
)

// SchemaPrefix is prepended to every boteco schema name.
const SchemaPrefix = "boteco_"

// ErrInvalidHandle is returned when a boteco username cannot be turned into a schema name.
var ErrInvalidHandle = errors.New("invalid boteco username")

// Space captures the PostgreSQL routing metadata for one provisioned boteco.
type Space struct {
	Handle     string
	SchemaName string
	RoleName   string
}

// ToSnake lower-cases the handle and replaces dashes so it is usable as an identifier.
func ToSnake(handle string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(handle)), "-", "_")
}

// BuildSchemaName returns `boteco_<handle snake>`.
func BuildSchemaName(handle string) string {
	return SchemaPrefix + ToSnake(handle)
}

// BuildRoleName returns the NOLOGIN role owning the schema: `<schema>_role`.
func BuildRoleName(schema string) string {
	return schema + "_role"
}

// Derive validates the public username and returns its Space.
// Handles are case-insensitive once mapped, so "BarDoZe" and "bardoze" share a space.
func Derive(handle string) (Space, error) {
	handle = strings.TrimSpace(handle)
	if !validation.ValidHandle(handle) {
		return Space{}, ErrInvalidHandle
	}

	schema := BuildSchemaName(handle)
	return Space{
		Handle:     handle,
		SchemaName: schema,
		RoleName:   BuildRoleName(schema),
	}, nil
}
