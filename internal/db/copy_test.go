package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "opportunities", []string{"destination_id", "value"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"opportunities"}, []string{"destination_id", "value"}).
		WillReturnResult(3)

	rows := [][]any{{"D1", 100.0}, {"D2", 50.0}, {"D3", 25.0}}
	n, err := CopyFrom(context.Background(), mock, "opportunities", []string{"destination_id", "value"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"cost_edges"}, []string{"origin_id", "destination_id", "cost"}).
		WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"O1", "D1", 5.0}}
	_, err = CopyFrom(context.Background(), mock, "cost_edges", []string{"origin_id", "destination_id", "cost"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO cost_edges")
	assert.NoError(t, mock.ExpectationsWereMet())
}
