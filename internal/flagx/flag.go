// Package flagx finds the config file flag in argv before the command line
// is parsed in full, so file values can be layered under the other flags.
package flagx

import (
	"os"
	"strings"
)

var configFlags = map[string]bool{"-c": true, "-config": true, "--config": true}

// ConfigPath returns the value of the last -c, -config or --config flag in
// args, or "" when there is none. Both "-c path" and "--config=path" forms
// are accepted. Scanning stops at "--".
func ConfigPath(args []string) string {
	path := ""
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}

		if name, value, ok := strings.Cut(arg, "="); ok && configFlags[name] {
			path = value
			continue
		}

		// a following "-..." token is another flag, not the value
		if configFlags[arg] && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			path = args[i+1]
			i++
		}
	}
	return path
}

// ConfigPathFromOS is ConfigPath over the process arguments.
func ConfigPathFromOS() string {
	return ConfigPath(os.Args[1:])
}
