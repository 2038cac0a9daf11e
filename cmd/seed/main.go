// Command seed loads reference medications and labs plus sample doctors,
// patients and flows. Running it twice leaves existing records alone.
package main

import (
	"context"
	"errors"
	"os"

	"hospital-chat/internal/config"
	"hospital-chat/internal/database"
	"hospital-chat/internal/store"
	"hospital-chat/pkg/logging"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel)

	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.Error("database setup failed", "error", err)
		os.Exit(1)
	}
	if err := seed(context.Background(), store.New(db), logger); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seeding completed")
}

func seed(ctx context.Context, s *store.Store, logger *logging.Logger) error {
	for i := range medications {
		if err := s.SaveMedication(ctx, &medications[i]); err != nil {
			return err
		}
	}
	logger.Info("medications seeded", "count", len(medications))

	for i := range labs {
		if err := s.SaveLab(ctx, &labs[i]); err != nil {
			return err
		}
	}
	logger.Info("labs seeded", "count", len(labs))

	for i := range doctors {
		d := doctors[i]
		err := s.CreateDoctor(ctx, &d)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			logger.Info("doctor already exists", "name", d.Name)
		case err != nil:
			return err
		default:
			logger.Info("created doctor", "name", d.Name, "id", d.ID)
		}
	}

	for i := range patients {
		p := patients[i]
		err := s.CreatePatient(ctx, &p)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			logger.Info("patient already exists", "name", p.Name)
		case err != nil:
			return err
		default:
			logger.Info("created patient", "name", p.Name, "id", p.ID)
		}
	}

	existing, err := s.ListFlows(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]bool, len(existing))
	for _, f := range existing {
		names[f.Name] = true
	}
	for i := range flows {
		f := flows[i]
		if names[f.Name] {
			logger.Info("flow already exists", "name", f.Name)
			continue
		}
		if err := s.CreateFlow(ctx, &f); err != nil {
			return err
		}
		logger.Info("created flow", "name", f.Name, "id", f.ID)
	}
	return nil
}
