package main

import (
	"context"
	"testing"

	"hospital-chat/internal/store"
	"hospital-chat/internal/store/storetest"
	"hospital-chat/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsRepeatable(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	require.NoError(t, seed(ctx, s, logging.Nop()))
	require.NoError(t, seed(ctx, s, logging.Nop()))

	docs, err := s.ListDoctors(ctx, store.Page{})
	require.NoError(t, err)
	assert.Len(t, docs, len(doctors))

	pts, err := s.ListPatients(ctx, store.Page{})
	require.NoError(t, err)
	assert.Len(t, pts, len(patients))

	fl, err := s.ListFlows(ctx)
	require.NoError(t, err)
	assert.Len(t, fl, len(flows))

	meds, err := s.ListMedications(ctx)
	require.NoError(t, err)
	assert.Len(t, meds, len(medications))

	cardio, err := s.DoctorsBySpecialization(ctx, "Cardiology")
	require.NoError(t, err)
	require.Len(t, cardio, 1)
	assert.Equal(t, 1200, cardio[0].ConsultationFee)
}
