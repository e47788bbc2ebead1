package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimarket/unimarket-backend/config"
	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/pkg/util"
)

func noSleep(time.Duration) {}

// failingFaceProvider simulates a provider outage.
type failingFaceProvider struct{}

func (p *failingFaceProvider) Name() string    { return "failing" }
func (p *failingFaceProvider) Available() bool { return true }
func (p *failingFaceProvider) Compare(_ context.Context, _, _ string) (*model.FaceMatchResult, error) {
	return nil, errors.New("provider unavailable")
}

// unavailableFaceProvider simulates missing credentials.
type unavailableFaceProvider struct{}

func (p *unavailableFaceProvider) Name() string    { return "unavailable" }
func (p *unavailableFaceProvider) Available() bool { return false }
func (p *unavailableFaceProvider) Compare(_ context.Context, _, _ string) (*model.FaceMatchResult, error) {
	return nil, errors.New("should never be called")
}

func TestSimulatedFaceProvider_ResultRanges(t *testing.T) {
	provider := newSimulatedFaceProvider(util.NewSeededRand(1), noSleep)

	assert.Equal(t, "simulated", provider.Name())
	assert.True(t, provider.Available())

	for i := 0; i < 50; i++ {
		result, err := provider.Compare(context.Background(), "https://cdn.example.com/id.jpg", "https://cdn.example.com/selfie.jpg")
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.GreaterOrEqual(t, result.Similarity, 70.0)
		assert.LessOrEqual(t, result.Similarity, 100.0)
		assert.GreaterOrEqual(t, result.Confidence, 80.0)
		assert.LessOrEqual(t, result.Confidence, 100.0)
	}
}

func TestSimulatedFaceProvider_SleepsWithinLatencyBand(t *testing.T) {
	var slept []time.Duration
	provider := newSimulatedFaceProvider(util.NewSeededRand(2), func(d time.Duration) {
		slept = append(slept, d)
	})

	_, err := provider.Compare(context.Background(), "a", "b")
	require.NoError(t, err)

	require.Len(t, slept, 1)
	assert.GreaterOrEqual(t, slept[0], 3*time.Second)
	assert.LessOrEqual(t, slept[0], 10*time.Second)
}

func TestFaceMatchService_FallsThroughToSimulated(t *testing.T) {
	service := &faceMatchService{
		providers: []faceProvider{
			&unavailableFaceProvider{},
			&failingFaceProvider{},
			newSimulatedFaceProvider(util.NewSeededRand(3), noSleep),
		},
	}

	result := service.CompareFaces(context.Background(), "https://cdn.example.com/id.jpg", "https://cdn.example.com/selfie.jpg")

	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, "simulated", result.Provider)
}

func TestFaceProviders_Availability(t *testing.T) {
	rek := &rekognitionProvider{}
	assert.False(t, rek.Available())
	rek.cfg = config.AWSConfig{AccessKeyID: "key", SecretAccessKey: "secret"}
	assert.True(t, rek.Available())

	fpp := &facePPProvider{}
	assert.False(t, fpp.Available())
	fpp.cfg = config.FacePPConfig{APIKey: "key", APISecret: "secret"}
	assert.True(t, fpp.Available())
}

func TestSimulatedProviders_ConcurrentUse(t *testing.T) {
	// Both simulated providers share one rng between concurrent submissions;
	// run with -race to catch unguarded access to it.
	rng := util.NewSeededRand(6)
	face := newSimulatedFaceProvider(rng, noSleep)
	ocr := newSimulatedExtractor(rng, noSleep)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := face.Compare(context.Background(), "https://cdn.example.com/id.jpg", "https://cdn.example.com/selfie.jpg")
			assert.NoError(t, err)
			assert.True(t, result.Success)
			assert.True(t, ocr.Extract("https://cdn.example.com/id.jpg").Success)
		}()
	}
	wg.Wait()
}
