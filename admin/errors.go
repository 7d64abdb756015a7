package admin

import "errors"

// ErrNoPaths is returned by Warm when the request names no paths.
var ErrNoPaths = errors.New(`admin: provide { "paths": ["/foo", "/bar"] }`)
