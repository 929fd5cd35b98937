// Package server contains the JSON payload types shared by all HTTP
// adapters in this repository.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
)

// HumanPayload is a struct that extends json marshaling to the content
// types this repository's HTTP layer traffics in.  T tags which member is
// live.
type HumanPayload struct {
	// T is the type of the live member
	T types.BasicKind

	// Bool holds a boolean
	Bool bool

	// Int holds an integer
	Int int

	// Float holds a double-precision float
	Float float64

	// String holds a string
	String string
}

// EncodeAndRespond writes the payload to w as a single-key JSON document,
// {"f64": ...}, {"int": ...}, {"bool": ...}, or {"str": ...}.
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	var obj interface{}
	switch hp.T {
	case types.Bool:
		obj = BoolT{Bool: hp.Bool}
	case types.Int:
		obj = IntT{Int: hp.Int}
	case types.Float64:
		obj = FloatT{F64: hp.Float}
	case types.String:
		obj = StrT{Str: hp.String}
	default:
		http.Error(w, fmt.Sprintf("server: unsupported payload type %v", hp.T), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// FloatT is a struct with a single f64 field for json (un)marshaling.
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field for json (un)marshaling.
type IntT struct {
	Int int `json:"int"`
}

// BoolT is a struct with a single bool field for json (un)marshaling.
type BoolT struct {
	Bool bool `json:"bool"`
}

// StrT is a struct with a single str field for json (un)marshaling.
type StrT struct {
	Str string `json:"str"`
}
