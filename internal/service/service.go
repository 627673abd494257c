// Package service contains the business logic between handlers and
// repositories: auth setup and endpoint registry resets.
package service
