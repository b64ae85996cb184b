package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/breathesense-server/internal/model"
)

func TestNewUserRepository(t *testing.T) {
	db := &Connection{}
	repo := NewUserRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestConnection_PingNilPool(t *testing.T) {
	conn := &Connection{}
	assert.Error(t, conn.Ping(t.Context()))
	assert.NoError(t, conn.Close())
}

func TestListConditions(t *testing.T) {
	t.Parallel()

	patient := model.RolePatient

	tests := []struct {
		name      string
		filter    model.ListFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "no filter",
			filter:    model.ListFilter{},
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "role only",
			filter:    model.ListFilter{Role: &patient},
			wantWhere: " WHERE role = $1",
			wantArgs:  []any{"patient"},
		},
		{
			name:      "search only",
			filter:    model.ListFilter{Search: " ali "},
			wantWhere: " WHERE (first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1)",
			wantArgs:  []any{"%ali%"},
		},
		{
			name:      "role and search",
			filter:    model.ListFilter{Role: &patient, Search: "smith"},
			wantWhere: " WHERE role = $1 AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)",
			wantArgs:  []any{"patient", "%smith%"},
		},
		{
			name:      "wildcards are escaped",
			filter:    model.ListFilter{Search: `50%_off\`},
			wantWhere: " WHERE (first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1)",
			wantArgs:  []any{`%50\%\_off\\%`},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			where, args := listConditions(tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	plain := errors.New("connection reset")

	tests := []struct {
		name   string
		err    error
		wantIs error
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: codeUniqueViolation}, wantIs: model.ErrEmailTaken},
		{name: "check violation", err: &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "users_role_check"}, wantIs: model.ErrConstraint},
		{name: "not null violation", err: &pgconn.PgError{Code: codeNotNullViolation}, wantIs: model.ErrConstraint},
		{name: "other pg error", err: &pgconn.PgError{Code: "40001"}, wantIs: nil},
		{name: "non pg error", err: plain, wantIs: plain},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := mapError(tt.err)
			if tt.wantIs == nil {
				assert.Equal(t, tt.err, got)
				return
			}
			assert.ErrorIs(t, got, tt.wantIs)
		})
	}
}

func TestEncodeDecodeJSON(t *testing.T) {
	data, err := encodeJSON[model.Address](nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	decoded, err := decodeJSON[model.Address](nil)
	require.NoError(t, err)
	assert.Nil(t, decoded)

	data, err = encodeJSON(&model.Address{City: "Riga", Country: "LV"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":"Riga","country":"LV"}`, string(data))

	decoded, err = decodeJSON[model.Address](data)
	require.NoError(t, err)
	assert.Equal(t, &model.Address{City: "Riga", Country: "LV"}, decoded)

	_, err = decodeJSON[model.Address]([]byte("{"))
	assert.Error(t, err)
}
