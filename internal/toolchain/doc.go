// Package toolchain finds and runs the external commands the launcher
// depends on: the interpreter, its package manager, and finally the
// application itself.
//
// Everything goes through os/exec. Commands are resolved with
// exec.LookPath and then asked for their version; only a command that
// answers is considered present. The application child inherits the
// launcher's stdio and its exit status is returned untouched.
package toolchain
