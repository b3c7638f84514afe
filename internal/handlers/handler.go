package handlers

import (
	"geminicli2api/internal/codeassist"
	"geminicli2api/internal/credential"
)

// Handler carries the shared collaborators for the API surface. All fields
// are safe for concurrent use.
type Handler struct {
	manager  *credential.Manager
	client   *codeassist.Client
	resolver *codeassist.Resolver
}

func New(manager *credential.Manager, client *codeassist.Client, resolver *codeassist.Resolver) *Handler {
	return &Handler{
		manager:  manager,
		client:   client,
		resolver: resolver,
	}
}
