package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurenix/internal/models"
)

func TestAuditInsert(t *testing.T) {
	mock := newMock(t)
	repo := NewAuditRepository(mock)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auth_audit")).
		WithArgs("1714557600000-0", "role.changed", "u1", "a@x.com", "Customer->Seller", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Insert(context.Background(), models.AuthEvent{
		ID:     "1714557600000-0",
		Type:   models.AuthEventRoleChanged,
		UserID: "u1",
		Email:  "a@x.com",
		Detail: "Customer->Seller",
		At:     at,
	})
	require.NoError(t, err)
}

func TestAuditInsertError(t *testing.T) {
	mock := newMock(t)
	repo := NewAuditRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auth_audit")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := repo.Insert(context.Background(), models.AuthEvent{ID: "1-0", Type: models.AuthEventLogout})
	assert.ErrorContains(t, err, "insert audit event")
}
