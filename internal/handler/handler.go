// Package handler holds the HTTP handlers: the built-in handlers registry
// endpoints route to, the admin API over the routing table, health and docs.
package handler
