// Package ports defines the interfaces the application services depend on.
// Infrastructure implements them; services never import infrastructure.
package ports
