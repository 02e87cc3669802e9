// internal/recorder/factory.go
package recorder

import (
	"fmt"
	"log/slog"

	"github.com/zkplatoon/platoon/internal/config"
	"github.com/zkplatoon/platoon/internal/recorder/memory"
	"github.com/zkplatoon/platoon/internal/recorder/websocket"
)

// NewBackend creates a recorder backend based on configuration.
func NewBackend(cfg config.RecorderConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.New(cfg.Memory), nil
	case "websocket":
		if cfg.WebSocket.URL == "" {
			return nil, fmt.Errorf("recorder.websocket.url is required for websocket recorder")
		}
		return websocket.New(websocket.Config{
			URL:    cfg.WebSocket.URL,
			Secret: cfg.WebSocket.Secret,
		}, logger), nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown recorder type: %s", cfg.Type)
	}
}
