package clients

import (
	"fmt"
	"sync"
	"time"

	"GoEstateAI/app/logger"
)

// Config defines the configuration for a client connector
type Config struct {
	Type    string            `yaml:"type" json:"type" validate:"oneof=discord"`
	Enabled bool              `yaml:"enabled" json:"enabled"`
	Config  map[string]string `yaml:"config,omitempty" json:"config,omitempty"`
}

type Registry struct {
	mu      sync.RWMutex
	clients []Interface
	log     *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{
		clients: make([]Interface, 0),
		log:     log,
	}
}

func (r *Registry) Register(client Interface, answerer Answerer) error {
	if err := client.Subscribe(answerer); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = append(r.clients, client)
	return nil
}

func (r *Registry) GetAll() []Interface {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Interface, len(r.clients))
	copy(result, r.clients)
	return result
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, client := range r.clients {
		if err := client.Close(); err != nil {
			r.log.Warn("⚠️ Error closing client", "error", err)
		}
	}
	r.clients = make([]Interface, 0)
}

// Options carries the settings every client shares.
type Options struct {
	RequestTimeout time.Duration
	Log            *logger.Logger
}

func CreateClient(cfg Config, opts Options) (Interface, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("client %s is disabled", cfg.Type)
	}

	switch cfg.Type {
	case "discord":
		dc, err := NewDiscordClientFromConfig(cfg.Config, opts)
		if err != nil {
			return nil, err
		}
		return dc, nil
	default:
		return nil, fmt.Errorf("unknown client type: %s", cfg.Type)
	}
}
