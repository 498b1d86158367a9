package appmanager

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"MaintBackOffice/api/uploads"
	"MaintBackOffice/internal/jobs"
	"MaintBackOffice/internal/logger"
	"MaintBackOffice/internal/resource"
	"MaintBackOffice/internal/serviceiface"
	"MaintBackOffice/internal/store"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var docStore store.Store

func SetStore(st store.Store) {
	docStore = st
}

// GetStore returns the document store shared by every service
func GetStore() store.Store {
	return docStore
}

var serviceConstructors = map[string]func(map[string]interface{}) serviceiface.Service{
	"logger": func(cfg map[string]interface{}) serviceiface.Service {
		return logger.NewLoggerService(cfg)
	},
	"resourcemanager": func(cfg map[string]interface{}) serviceiface.Service {
		rm := resource.NewResourceManager(cfg)
		if docStore != nil {
			rm.AddResource("store", docStore)
		}
		return rm
	},
	"cron": func(cfg map[string]interface{}) serviceiface.Service {
		return jobs.NewCronService(cfg, docStore)
	},
	"upload": func(cfg map[string]interface{}) serviceiface.Service {
		return uploads.NewUploadService(cfg, docStore)
	},
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	mu       sync.Mutex
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

// StartAll starts services in registration order, holding the resource
// manager back so its first heartbeat sees every other service up.
func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	for _, service := range am.services {
		if service.Name() == "resourcemanager" {
			continue
		}
		if err := am.start(service); err != nil {
			return err
		}
	}
	for _, service := range am.services {
		if service.Name() == "resourcemanager" {
			if err := am.start(service); err != nil {
				return err
			}
		}
	}
	return nil
}

func (am *AppManager) start(service serviceiface.Service) error {
	zap.L().Info("starting service", zap.String("service", service.Name()))
	if err := service.Start(); err != nil {
		return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
	}
	return nil
}

// StopAll stops services in reverse registration order. Every service gets a
// Stop call; the first failure is returned.
func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	var first error
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		zap.L().Info("stopping service", zap.String("service", svc.Name()))
		if err := svc.Stop(); err != nil && first == nil {
			first = fmt.Errorf("failed to stop service %s: %w", svc.Name(), err)
		}
	}
	return first
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	sort.SliceStable(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})

	return seq.Services, nil
}

func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) {
	for _, svc := range configs {
		if enabled, ok := svc.Config["enabled"].(bool); ok && !enabled {
			zap.L().Info("service disabled", zap.String("service", svc.Name))
			continue
		}
		constructor, ok := serviceConstructors[svc.Name]
		if !ok {
			zap.L().Warn("no constructor for service", zap.String("service", svc.Name))
			continue
		}
		am.RegisterService(constructor(svc.Config))
	}

	for _, svc := range am.services {
		if l, ok := svc.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
			break
		}
	}
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	am.mu.Lock()
	defer am.mu.Unlock()
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}
