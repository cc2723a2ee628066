package refkernel

import (
	"os"
	"strings"

	"kernelcheck/internal/kernel"
)

// EnvStub, when set in a process's environment to "<kind>:<fault>", turns
// that process into a reference kernel. Test binaries check it from TestMain
// so they can re-execute themselves as a stub kernel.
const EnvStub = "KCHECK_REFKERNEL"

// StubEnv returns the environment entry that selects a stub kernel.
func StubEnv(kind kernel.Kind, fault Fault) string {
	return EnvStub + "=" + string(kind) + ":" + string(fault)
}

// ServeFromEnv serves one instance over the process's standard streams if
// EnvStub is set. ok is false when the variable is absent, and the caller
// should carry on normally.
func ServeFromEnv() (status int, ok bool) {
	val, ok := os.LookupEnv(EnvStub)
	if !ok {
		return 0, false
	}
	kindName, faultName, _ := strings.Cut(val, ":")
	kind, err := kernel.ParseKind(kindName)
	if err != nil {
		return 2, true
	}
	fault, err := ParseFault(faultName)
	if err != nil {
		return 2, true
	}
	return Serve(kind, kernel.DefaultMaxN, fault, os.Stdin, os.Stdout, os.Stderr), true
}
