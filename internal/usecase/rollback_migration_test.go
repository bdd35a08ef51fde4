package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmshift.io/vmshift/internal/domain"
	apperrors "vmshift.io/vmshift/internal/pkg/errors"
)

func TestRollbackMigration(t *testing.T) {
	f := newFixture(t)
	vm := f.seedVM(t)
	m := f.seedMigration(t, vm.ID)

	uc := NewRollbackMigrationUseCase(f.migrations, f.recorder, 0)
	out, err := uc.Execute(context.Background(), RollbackMigrationInput{MigrationID: m.ID, JobID: 5})
	require.NoError(t, err)

	assert.Equal(t, "success", out.Status)
	assert.Equal(t, m.ID, out.MigrationID)
	assert.Equal(t, "Migration rolled back successfully", out.Message)

	final, err := f.migrations.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MigrationStatusCancelled, final.Status)
	assert.Equal(t, "Migration rolled back", final.StatusMessage)

	assert.Equal(t, []string{"Rolling back deployment..."}, f.recorder.Statuses())
}

func TestRollbackMigrationNotFound(t *testing.T) {
	f := newFixture(t)

	uc := NewRollbackMigrationUseCase(f.migrations, f.recorder, 0)
	_, err := uc.Execute(context.Background(), RollbackMigrationInput{MigrationID: 404})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
