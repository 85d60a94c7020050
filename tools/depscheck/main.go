// Command depscheck enforces the module's layering rules: production
// packages must not depend on the scripted host simulator, and the logging
// packages must not reach back into the engine.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const (
	modulePath  = "partyframes/overlay"
	hostsimPath = modulePath + "/internal/hostsim"
)

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// hostsimAllowed lists the packages that may import the scripted host in
// production code: the simulator itself and the harness binaries built on it.
func hostsimAllowed(importPath string) bool {
	if importPath == hostsimPath {
		return true
	}
	if strings.HasPrefix(importPath, modulePath+"/cmd/") {
		return true
	}
	return importPath == modulePath+"/internal/app"
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	decoder := json.NewDecoder(bytes.NewReader(output))

	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
			os.Exit(1)
		}

		for _, imp := range pkg.Imports {
			if imp == hostsimPath && !hostsimAllowed(pkg.ImportPath) {
				violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
			}
			if strings.HasPrefix(pkg.ImportPath, modulePath+"/logging") && imp == modulePath {
				violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
			}
		}
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}
