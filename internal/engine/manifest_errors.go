package engine

import "errors"

var errManifestMissingVersion = errors.New("manifest is missing its version field")
