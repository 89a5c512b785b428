package sqlassets

import _ "embed"

// CoreSQL creates the shared onboarding tables: users, boteco and user_boteco.
//
//go:embed schema/core.sql
var CoreSQL string

// BotecoSpaceSQL creates the base tables inside a provisioned boteco schema.
// It runs with search_path pointing at that schema.
//
//go:embed schema/boteco_space.sql
var BotecoSpaceSQL string
