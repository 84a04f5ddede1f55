// Package health provides liveness and readiness checking for the admin
// server, plus a lightweight runtime monitor tracking uptime, message and
// error counts, and the one-minute message rate.
package health
