//go:build sqlite_vec && cgo

package vectorstore

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Registering the extension makes vec_distance_cosine available as an
// ordinary scalar SQL function on every connection, so Store.Query can
// run cosine KNN search against the plain BLOB embedding column
// without a vec0 virtual table.
func init() {
	vec.Auto()
}
