package application

import (
	"context"
	"errors"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/roadnetwork"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/apperror"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNetworkRepo struct {
	imported  []*roadnetwork.RoadNetwork
	importErr error
}

func (r *fakeNetworkRepo) LoadRegion(context.Context, orb.Bound) (*roadnetwork.RoadNetwork, error) {
	return &roadnetwork.RoadNetwork{}, nil
}

func (r *fakeNetworkRepo) Import(_ context.Context, network *roadnetwork.RoadNetwork) error {
	if r.importErr != nil {
		return r.importErr
	}
	r.imported = append(r.imported, network)
	return nil
}

func (r *fakeNetworkRepo) Stats(context.Context) (*roadnetwork.Stats, error) {
	var stats roadnetwork.Stats
	for _, n := range r.imported {
		stats.Nodes += int64(len(n.Nodes))
		stats.Segments += int64(len(n.Segments))
		for _, s := range n.Segments {
			if s.Oneway {
				stats.Oneway++
			}
		}
	}
	return &stats, nil
}

func TestImportNetwork(t *testing.T) {
	repo := &fakeNetworkRepo{}
	svc := NewNetworkService(repo, zap.NewNop())

	result, err := svc.ImportNetwork(context.Background(), testNetwork())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Nodes)
	assert.Equal(t, 3, result.Segments)

	stats, err := svc.GetNetworkStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Nodes)
	assert.Equal(t, int64(3), stats.Segments)
	assert.Zero(t, stats.Oneway)
}

func TestImportNetwork_RejectsInvalidData(t *testing.T) {
	repo := &fakeNetworkRepo{}
	svc := NewNetworkService(repo, zap.NewNop())

	network := testNetwork()
	network.Segments[0].LengthM = -5

	_, err := svc.ImportNetwork(context.Background(), network)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Empty(t, repo.imported)
}

func TestImportNetwork_RepositoryError(t *testing.T) {
	repo := &fakeNetworkRepo{importErr: errors.New("disk full")}
	svc := NewNetworkService(repo, zap.NewNop())

	_, err := svc.ImportNetwork(context.Background(), testNetwork())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
