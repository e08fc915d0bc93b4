package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	var v struct {
		DOB Date `json:"dateOfBirth"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"dateOfBirth":"1992-03-08T00:00:00.000Z"}`), &v))
	assert.Equal(t, "1992-03-08", v.DOB.String())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dateOfBirth":"1992-03-08"}`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"dateOfBirth":null}`), &v))
	assert.True(t, v.DOB.IsZero())
	out, err = json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dateOfBirth":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"dateOfBirth":"yesterday"}`), &v))
}

func TestDateScanValue(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(1985, 11, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "1985-11-02", d.String())

	require.NoError(t, d.Scan([]byte("1985-11-03")))
	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "1985-11-03", v)

	require.NoError(t, d.Scan(nil))
	v, err = d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, d.Scan(42))
}

func TestCanAdvanceProgress(t *testing.T) {
	assert.False(t, CanAdvanceProgress(nil))
	assert.False(t, CanAdvanceProgress(&Grievance{AdminStatus: AdminStatusUnapproved}))
	assert.False(t, CanAdvanceProgress(&Grievance{AdminStatus: AdminStatusRejected}))
	assert.True(t, CanAdvanceProgress(&Grievance{AdminStatus: AdminStatusApproved}))
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, GenderFemale.Valid())
	assert.False(t, Gender("female").Valid())
	assert.True(t, PriorityUrgent.Valid())
	assert.False(t, GrievancePriority("Critical").Valid())
	assert.True(t, ProgressInProgress.Valid())
	assert.False(t, ProgressStatus("Done").Valid())
	assert.True(t, RoleSuperAdmin.IsAdmin())
	assert.False(t, RoleCitizen.IsAdmin())
}
