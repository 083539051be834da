package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecosort_service/internal/domain/model"
)

func testCatalog() model.Catalog {
	return model.Catalog{
		0: {Name: "bag", Category: model.CategoryInorganic},
		1: {Name: "banana_peel", Category: model.CategoryOrganic},
		2: {Name: "bottle", Category: model.CategoryInorganic},
	}
}

func raw(classID int, confidence float64) model.RawDetection {
	return model.RawDetection{
		ClassID:    classID,
		Confidence: confidence,
		Box:        model.BoundingBox{X1: 10, Y1: 10, X2: 100, Y2: 100},
	}
}

func TestMapClass(t *testing.T) {
	catalog := testCatalog()

	for id, want := range catalog {
		entry, err := MapClass(catalog, id)
		require.NoError(t, err)
		assert.Equal(t, want, entry)

		// Deterministic: the same id always yields the same pair.
		again, err := MapClass(catalog, id)
		require.NoError(t, err)
		assert.Equal(t, entry, again)
	}
}

func TestMapClassUnknownID(t *testing.T) {
	_, err := MapClass(testCatalog(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestMapDetectionsFiltersBelowThreshold(t *testing.T) {
	detections, err := MapDetections(testCatalog(), []model.RawDetection{
		raw(0, 0.9),
		raw(1, 0.5),
	}, 0.75)
	require.NoError(t, err)

	require.Len(t, detections, 1)
	assert.Equal(t, "bag", detections[0].ClassName)
	assert.Equal(t, model.CategoryInorganic, detections[0].Category)
}

func TestMapDetectionsThresholdInclusive(t *testing.T) {
	detections, err := MapDetections(testCatalog(), []model.RawDetection{
		raw(0, 0.75),
	}, 0.75)
	require.NoError(t, err)
	assert.Len(t, detections, 1, "confidence exactly at threshold is included")
}

func TestMapDetectionsThresholdEdges(t *testing.T) {
	input := []model.RawDetection{raw(0, 0.0), raw(1, 1.0)}

	all, err := MapDetections(testCatalog(), input, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2, "threshold 0 passes everything")

	perfect, err := MapDetections(testCatalog(), input, 1)
	require.NoError(t, err)
	require.Len(t, perfect, 1, "threshold 1 passes only perfect scores")
	assert.Equal(t, "banana_peel", perfect[0].ClassName)
}

func TestMapDetectionsUnknownClassAboveThreshold(t *testing.T) {
	_, err := MapDetections(testCatalog(), []model.RawDetection{
		raw(99, 0.9),
	}, 0.75)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestMapDetectionsInvalidThreshold(t *testing.T) {
	for _, threshold := range []float64{-0.1, 1.1, 2} {
		_, err := MapDetections(testCatalog(), nil, threshold)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestMapDetectionsMalformedBox(t *testing.T) {
	bad := model.RawDetection{
		ClassID:    0,
		Confidence: 0.9,
		Box:        model.BoundingBox{X1: 100, Y1: 10, X2: 10, Y2: 100},
	}
	_, err := MapDetections(testCatalog(), []model.RawDetection{bad}, 0.75)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMapDetectionsRejectsBadBoxEvenBelowThreshold(t *testing.T) {
	bad := model.RawDetection{
		ClassID:    0,
		Confidence: 0.1,
		Box:        model.BoundingBox{X1: 0, Y1: 50, X2: 10, Y2: 40},
	}
	_, err := MapDetections(testCatalog(), []model.RawDetection{bad}, 0.75)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func mapped(category model.Category) model.Detection {
	return model.Detection{Category: category}
}

func TestDecideEmpty(t *testing.T) {
	decision := Decide(nil)
	assert.Equal(t, model.SignalIdle, decision.Signal)
	assert.Equal(t, DecisionNoDetection, decision.Decision)
	assert.Equal(t, 0, decision.TotalCount)
}

func TestDecideAllInorganic(t *testing.T) {
	decision := Decide([]model.Detection{
		mapped(model.CategoryInorganic),
		mapped(model.CategoryInorganic),
	})
	assert.Equal(t, model.SignalGreen, decision.Signal)
	assert.Equal(t, DecisionInorganicStream, decision.Decision)
	assert.Equal(t, 2, decision.InorganicCount)
	assert.Equal(t, 0, decision.OrganicCount)
}

func TestDecideAllOrganic(t *testing.T) {
	decision := Decide([]model.Detection{
		mapped(model.CategoryOrganic),
	})
	assert.Equal(t, model.SignalRed, decision.Signal)
	assert.Equal(t, DecisionOrganicStream, decision.Decision)
}

func TestDecideMixedIgnoresCounts(t *testing.T) {
	detections := []model.Detection{mapped(model.CategoryOrganic)}
	for i := 0; i < 99; i++ {
		detections = append(detections, mapped(model.CategoryInorganic))
	}

	decision := Decide(detections)
	assert.Equal(t, model.SignalMixed, decision.Signal)
	assert.Equal(t, DecisionSeparateStreams, decision.Decision)
	assert.Equal(t, 99, decision.InorganicCount)
	assert.Equal(t, 1, decision.OrganicCount)
	assert.Equal(t, 100, decision.TotalCount)
}

func TestMapThenDecideGreen(t *testing.T) {
	detections, err := MapDetections(testCatalog(), []model.RawDetection{
		raw(0, 0.9),
		raw(1, 0.5),
	}, 0.75)
	require.NoError(t, err)
	assert.Equal(t, model.SignalGreen, Decide(detections).Signal)
}

func TestMapThenDecideMixed(t *testing.T) {
	detections, err := MapDetections(testCatalog(), []model.RawDetection{
		raw(0, 0.9),
		raw(1, 0.8),
	}, 0.75)
	require.NoError(t, err)
	assert.Equal(t, model.SignalMixed, Decide(detections).Signal)
}

func TestDetectionColors(t *testing.T) {
	detections, err := MapDetections(testCatalog(), []model.RawDetection{
		raw(0, 0.9),
		raw(1, 0.9),
	}, 0.5)
	require.NoError(t, err)
	require.Len(t, detections, 2)
	assert.Equal(t, "#00FF00", detections[0].Color)
	assert.Equal(t, "#FF6600", detections[1].Color)
}
