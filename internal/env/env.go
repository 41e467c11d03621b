// Package env resolves the runtime environment and reads process variables.
package env

import (
	"os"
	"strconv"
	"strings"
)

type Environment string

const (
	Local      Environment = "local"
	Production Environment = "production"

	Key string = "ENV"
)

func (e Environment) Valid() bool {
	switch e {
	case Local, Production:
		return true
	}
	return false
}

// Secure reports whether cookies must carry the Secure flag.
func (e Environment) Secure() bool { return e == Production }

var Current Environment = Local

func init() {
	Current = Parse(os.Getenv(Key))
}

// Parse maps a raw value to an Environment, falling back to Local.
func Parse(v string) Environment {
	e := Environment(strings.ToLower(strings.TrimSpace(v)))
	if !e.Valid() {
		return Local
	}
	return e
}

// Or returns the trimmed value of key, or fallback when it is unset or blank.
func Or(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Int parses key as an int. ok is false when the variable is unset.
func Int(key string) (val int, ok bool, err error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err = strconv.Atoi(raw)
	if err != nil {
		return 0, true, err
	}
	return val, true, nil
}

// List splits a comma separated variable, dropping empty entries.
func List(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
