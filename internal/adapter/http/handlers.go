package http

import (
	"github.com/SCP-015/nusahire/internal/config"
	"github.com/SCP-015/nusahire/internal/service"
)

// Handlers holds the services the HTTP handlers delegate to.
type Handlers struct {
	Auth        *service.AuthService
	Permissions *service.PermissionEvaluator
	Bridge      *service.CredentialBridge
	Proxy       config.Proxy
}
