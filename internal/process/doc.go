// Package process owns a single external child process: starting it with a
// working directory and redirected output, polling it for readiness, and
// stopping it with a SIGTERM-then-SIGKILL escalation.
package process
