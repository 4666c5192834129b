package spec

import (
	"strings"

	"github.com/varnalabs/apitestgen/internal/model"
)

var opIDReplacer = strings.NewReplacer("{", "", "}", "", "/", "_", "-", "_")

// SynthesizeOperationID derives an operation id for operations that do not declare
// one: GET /orders/{id} becomes get_orders_id and GET / becomes get_root.
func SynthesizeOperationID(method model.Method, path string) string {
	p := strings.TrimLeft(opIDReplacer.Replace(strings.TrimSpace(path)), "_")
	if p == "" {
		p = "root"
	}
	return strings.ToLower(string(method)) + "_" + p
}
