// Package middleware provides HTTP middleware for the surface tracker API.
//
// It includes:
//   - Access logging in W3C Extended Log Format through the service logger
//   - Prometheus request metrics labelled by route template
package middleware
