package resource

import (
	"context"
	"sync"
	"time"

	"MaintBackOffice/internal/config"
	"MaintBackOffice/internal/logger"
	"MaintBackOffice/internal/serviceiface"

	"go.uber.org/zap"
)

// Pinger is a shared resource whose health can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ResourceManager holds shared resources (the document store) and pings every
// Pinger among them on a heartbeat. Health transitions are logged once.
type ResourceManager struct {
	resources         map[string]interface{}
	healthy           map[string]bool
	mu                sync.RWMutex
	stopChan          chan struct{}
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
}

func NewResourceManager(cfg map[string]interface{}) *ResourceManager {
	interval := config.DefaultHeartbeatInterval
	if val, ok := cfg["heartbeat_interval"]; ok {
		switch v := val.(type) {
		case string:
			if d, err := time.ParseDuration(v); err == nil {
				interval = d
			}
		case int:
			interval = time.Duration(v) * time.Second
		case float64:
			interval = time.Duration(v) * time.Second
		}
	}
	return &ResourceManager{
		resources:         make(map[string]interface{}),
		healthy:           make(map[string]bool),
		stopChan:          make(chan struct{}),
		heartbeatInterval: interval,
	}
}

var _ serviceiface.Service = (*ResourceManager)(nil)

func (rm *ResourceManager) Name() string { return "resourcemanager" }

func (rm *ResourceManager) Start() error {
	logger.Audit("resource manager started", zap.Duration("heartbeat_interval", rm.heartbeatInterval))
	rm.wg.Add(1)
	go rm.heartbeatLoop()
	return nil
}

func (rm *ResourceManager) Stop() error {
	close(rm.stopChan)
	rm.wg.Wait()
	return nil
}

func (rm *ResourceManager) heartbeatLoop() {
	defer rm.wg.Done()
	ticker := time.NewTicker(rm.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stopChan:
			return
		case <-ticker.C:
			rm.CheckHealth(context.Background())
		}
	}
}

// CheckHealth pings every Pinger resource and returns each one's health.
func (rm *ResourceManager) CheckHealth(ctx context.Context) map[string]bool {
	rm.mu.RLock()
	pingers := make(map[string]Pinger)
	for key, r := range rm.resources {
		if p, ok := r.(Pinger); ok {
			pingers[key] = p
		}
	}
	rm.mu.RUnlock()

	status := make(map[string]bool, len(pingers))
	for key, p := range pingers {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.Ping(pingCtx)
		cancel()
		status[key] = err == nil

		rm.mu.Lock()
		was, seen := rm.healthy[key]
		rm.healthy[key] = err == nil
		rm.mu.Unlock()

		switch {
		case err != nil && (!seen || was):
			zap.L().Error("resource unhealthy", zap.String("resource", key), zap.Error(err))
		case err == nil && seen && !was:
			logger.Audit("resource recovered", zap.String("resource", key))
		}
	}
	return status
}

func (rm *ResourceManager) AddResource(key string, resource interface{}) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.resources[key] = resource
}

func (rm *ResourceManager) GetResource(key string) (interface{}, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	resource, exists := rm.resources[key]
	return resource, exists
}

func (rm *ResourceManager) RemoveResource(key string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.resources, key)
	delete(rm.healthy, key)
}

func (rm *ResourceManager) ListResources() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	keys := make([]string, 0, len(rm.resources))
	for key := range rm.resources {
		keys = append(keys, key)
	}
	return keys
}
