// Package query builds the LwM2M registration query string list
// (lwm2m=, ep=, lt=, b=, sms=) in the fixed order servers expect.
package query

import (
	"fmt"
	"strconv"
)

// Params holds the optional registration query arguments. A nil field is
// omitted from the built list entirely.
type Params struct {
	Lwm2m *string
	Ep    *string
	Lt    *int64
	B     *string
	Sms   *string
}

// Build assembles the ordered "key=value" query segments for a
// registration request: lwm2m, ep, lt, b, sms, in that exact order,
// skipping any nil field. Lt must be positive; any formatting failure
// discards the whole list and returns an error, rather than returning a
// partially built one.
func Build(p Params) ([]string, error) {
	var out []string

	if p.Lwm2m != nil {
		out = append(out, "lwm2m="+*p.Lwm2m)
	}
	if p.Ep != nil {
		out = append(out, "ep="+*p.Ep)
	}
	if p.Lt != nil {
		if *p.Lt <= 0 {
			return nil, fmt.Errorf("lt must be positive, got %d", *p.Lt)
		}
		out = append(out, "lt="+strconv.FormatInt(*p.Lt, 10))
	}
	if p.B != nil {
		out = append(out, "b="+*p.B)
	}
	if p.Sms != nil {
		out = append(out, "sms="+*p.Sms)
	}

	return out, nil
}
