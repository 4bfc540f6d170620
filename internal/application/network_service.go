package application

import (
	"context"
	"fmt"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/roadnetwork"
	"go.uber.org/zap"
)

// ImportResultDTO summarises an accepted import.
type ImportResultDTO struct {
	Nodes    int `json:"nodes"`
	Segments int `json:"segments"`
}

// NetworkService manages the stored road network.
type NetworkService struct {
	repo   roadnetwork.Repository
	logger *zap.Logger
}

// NewNetworkService creates a new NetworkService.
func NewNetworkService(repo roadnetwork.Repository, logger *zap.Logger) *NetworkService {
	return &NetworkService{repo: repo, logger: logger}
}

// ImportNetwork validates and upserts a batch of road data.
func (s *NetworkService) ImportNetwork(ctx context.Context, network *roadnetwork.RoadNetwork) (*ImportResultDTO, error) {
	if err := network.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Import(ctx, network); err != nil {
		return nil, fmt.Errorf("failed to import road network: %w", err)
	}

	s.logger.Info("road network imported",
		zap.Int("nodes", len(network.Nodes)),
		zap.Int("segments", len(network.Segments)),
	)

	return &ImportResultDTO{
		Nodes:    len(network.Nodes),
		Segments: len(network.Segments),
	}, nil
}

// GetNetworkStats returns counts of the stored road data.
func (s *NetworkService) GetNetworkStats(ctx context.Context) (*roadnetwork.Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get network stats: %w", err)
	}
	return stats, nil
}
