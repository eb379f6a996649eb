// Package launcher implements the bootstrap sequence that gets the Python
// application running:
//
//  1. the interpreter resolves and answers --version
//  2. its package manager does the same
//  3. the dependency manifest exists next to the launcher
//  4. the package manager installs the manifest quietly
//
// then the application entry point runs as a child process and its exit
// code becomes the launcher's.
//
// Stages run one after the other on the calling goroutine. The first
// failing stage is fatal: the operator sees a localized diagnostic, the
// launcher waits for acknowledgment and the caller gets exit code 1.
// Nothing is retried.
package launcher
