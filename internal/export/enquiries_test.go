package export

import (
	"bytes"
	"testing"
	"time"

	"listing-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteEnquiries(t *testing.T) {
	pid := "p1"
	orphan := "gone"
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	enquiries := []models.Enquiry{
		{ID: "e1", Name: "Ann", Email: "ann@example.com", Phone: "123", Message: "Hi", PropertyID: &pid, Status: models.EnquiryStatusNew, CreatedAt: at},
		{ID: "e2", Name: "Bob", Phone: "456", Message: "Hello", PropertyID: &orphan, Status: models.EnquiryStatusClosed, CreatedAt: at},
		{ID: "e3", Name: "Cy", Phone: "789", Message: "General", Status: models.EnquiryStatusReviewed, CreatedAt: at},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEnquiries(&buf, enquiries, map[string]string{"p1": "Sea view flat"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(EnquirySheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Status", rows[0][2])
	assert.Equal(t, []string{"e1", "2024-05-01 09:30", "new", "Ann", "ann@example.com", "123", "Sea view flat", "Hi"}, rows[1])
	assert.Equal(t, "gone", rows[2][6])
	assert.Equal(t, "", rows[3][6])
}

func TestWriteEnquiries_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEnquiries(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(EnquirySheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "enquiries-2024-05-01.xlsx", EnquiryFilename("2024-05-01"))
}
