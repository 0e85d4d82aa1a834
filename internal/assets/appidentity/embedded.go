package appidentityassets

import _ "embed"

// YAML is the genimage application identity: binary name, env prefix and
// config directory name.
//
//go:embed app.yaml
var YAML []byte
