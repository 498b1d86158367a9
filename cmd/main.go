package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"MaintBackOffice/internal/appmanager"
	"MaintBackOffice/internal/store"
	"MaintBackOffice/internal/store/mongostore"
	"MaintBackOffice/internal/store/pgstore"
)

// OpenStore connects the document store selected by STORE_DRIVER.
func OpenStore(ctx context.Context) (store.Store, error) {
	switch driver := os.Getenv("STORE_DRIVER"); driver {
	case "", "mongo":
		uri := os.Getenv("MONGO_URI")
		if uri == "" {
			uri = "mongodb://localhost:27017"
		}
		name := os.Getenv("MONGO_DATABASE")
		if name == "" {
			name = "maintbackoffice"
		}
		return mongostore.Connect(ctx, uri, name)
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		return pgstore.Connect(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want mongo or postgres)", driver)
	}
}

func main() {
	// Load .env for local dev; absent in deployed environments
	_ = godotenv.Load("../.env")
	_ = godotenv.Load(".env")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := OpenStore(ctx)
	cancel()
	if err != nil {
		log.Fatal("failed to connect to store:", err)
	}
	appmanager.SetStore(st)

	manager := appmanager.NewAppManager()

	servicesFile := os.Getenv("SERVICES_FILE")
	if servicesFile == "" {
		servicesFile = "../services.yaml"
	}
	servicesCfg, err := appmanager.LoadServiceSequence(servicesFile)
	if err != nil {
		log.Fatal("failed to load service sequence:", err)
	}

	manager.AutoRegisterServices(servicesCfg)

	if err := manager.StartAll(); err != nil {
		log.Fatal("failed to start:", err)
	}
	zap.L().Info("back office started", zap.String("services_file", servicesFile))

	// Graceful shutdown handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	zap.L().Info("shutting down", zap.String("signal", sig.String()))

	stopErr := manager.StopAll()
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	if err := st.Close(closeCtx); err != nil {
		log.Println("failed to close store:", err)
	}
	if stopErr != nil {
		log.Fatal("failed to stop:", stopErr)
	}
}
