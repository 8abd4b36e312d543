/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package canonicalizer

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/pkg/errors"
)

// ErrEncoding is returned when a value falls outside the canonical encoding domain
// (maps, ordered sequences, strings, integers, booleans, null).
var ErrEncoding = errors.New("value is outside the canonical encoding domain")

// maxSafeInteger is the largest integer the canonical number form represents exactly.
const maxSafeInteger = 1<<53 - 1

// MarshalCanonical is using JCS RFC canonicalization: lexicographically sorted map keys,
// no insignificant whitespace, literal UTF-8 text. The transaction id and the signing
// message are both derived from this output, so the encoding must be byte-identical
// across independent implementations.
func MarshalCanonical(value interface{}) ([]byte, error) {
	valueBytes, ok := value.([]byte)

	if !ok {
		var err error

		valueBytes, err = json.Marshal(value)
		if err != nil {
			return nil, errors.WithMessage(ErrEncoding, err.Error())
		}
	}

	if err := validateDomain(valueBytes); err != nil {
		return nil, err
	}

	result, err := jsoncanonicalizer.Transform(valueBytes)
	if err != nil {
		return nil, errors.WithMessage(ErrEncoding, err.Error())
	}

	return result, nil
}

// validateDomain rejects values the canonical form cannot represent exactly:
// fractional or exponent-form numbers, and integers beyond 2^53-1.
func validateDomain(content []byte) error {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	for {
		token, err := dec.Token()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return errors.WithMessage(ErrEncoding, err.Error())
		}

		num, ok := token.(json.Number)
		if !ok {
			continue
		}

		if err := validateNumber(num); err != nil {
			return err
		}
	}
}

func validateNumber(num json.Number) error {
	s := num.String()
	if strings.ContainsAny(s, ".eE") {
		return errors.WithMessagef(ErrEncoding, "non-integer number: %s", s)
	}

	n, err := num.Int64()
	if err != nil {
		return errors.WithMessagef(ErrEncoding, "integer out of range: %s", s)
	}

	if n > maxSafeInteger || n < -maxSafeInteger {
		return errors.WithMessagef(ErrEncoding, "integer exceeds exact range: %s", s)
	}

	return nil
}
