package handler

import "net/http"

// ClientConfig is the publishable configuration the mobile app needs before
// it can authenticate: the identity provider's publishable key and the base
// URL it should talk to. Nothing secret belongs in here.
type ClientConfig struct {
	ClerkPublishableKey string `json:"clerkPublishableKey"`
	APIBaseURL          string `json:"apiBaseUrl"`
}

// ConfigHandler serves ClientConfig on an unauthenticated route — the
// client needs it before it has a session.
type ConfigHandler struct {
	cfg ClientConfig
}

// NewConfigHandler creates a ConfigHandler.
func NewConfigHandler(cfg ClientConfig) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// HandleClientConfig handles GET /api/client-config.
func (h *ConfigHandler) HandleClientConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg)
}
