package envutil

import (
	"fmt"
	"os"
	"strconv"
)

// GetenvDefault gets the value of an environment variable, or returns the
// specified default value if that variable is not set.
func GetenvDefault(name, defaultValue string) string {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultValue
	}
	return val
}

// GetenvDefaultInt gets an environment variable as an int, or else returns the default.
// A set but non-integer variable is an error.
func GetenvDefaultInt(name string, defaultVal int) (int, error) {
	val, found := os.LookupEnv(name)
	if !found || val == "" {
		return defaultVal, nil
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s should be an integer: %v", name, err)
	}
	return intVal, nil
}

// GetenvDefaultBool gets an environment variable as a bool ("1", "true", "false", ...), or
// else returns the default. A set but unparsable variable is an error.
func GetenvDefaultBool(name string, defaultVal bool) (bool, error) {
	val, found := os.LookupEnv(name)
	if !found || val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("environment variable %s should be a boolean: %v", name, err)
	}
	return b, nil
}
